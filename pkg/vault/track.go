package vault

import (
	"context"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/arthur-debert/dotvault/pkg/errors"
	"github.com/arthur-debert/dotvault/pkg/glob"
	"github.com/arthur-debert/dotvault/pkg/logging"
	"github.com/arthur-debert/dotvault/pkg/types"
)

// Add declares each argument, tracks what it resolves to and commits.
// Arguments that match nothing are reported and leave the configuration
// untouched.
func (v *Vault) Add(ctx context.Context, args []string) (*types.Result, error) {
	done := logging.LogOperationStart(v.logger, "add")
	defer done()

	res := types.NewResult("add")
	if len(args) == 0 {
		return nil, errors.New(errors.ErrInvalidInput, "no paths given")
	}

	var added []string
	var targets []string
	seen := mapset.NewThreadUnsafeSet[string]()
	configChanged := false

	for _, arg := range args {
		pattern, err := v.argPattern(arg)
		if err != nil {
			res.AddError("add", arg, err)
			continue
		}

		exclude := slices.DeleteFunc(slices.Clone(v.cfg.Exclude), func(e string) bool { return e == pattern })
		matched, err := v.resolve([]string{pattern}, exclude)
		if err != nil {
			res.AddError("add", arg, err)
			continue
		}
		if len(matched) == 0 {
			res.Add(types.Step{Name: "add", Target: pattern, Outcome: types.OutcomeWarning, Message: "matches nothing, not added"})
			continue
		}

		if v.cfg.AddInclude(pattern) {
			configChanged = true
			added = append(added, pattern)
		}
		for _, m := range matched {
			if !seen.Contains(m) {
				seen.Add(m)
				targets = append(targets, m)
			}
		}
	}

	if configChanged {
		if err := v.cfg.Save(); err != nil {
			res.AddError("config", v.display(v.paths.ConfigFile()), err)
			return res, nil
		}
		res.Add(types.Step{Name: "config", Target: v.display(v.paths.ConfigFile()), Outcome: types.OutcomeSuccess, Message: "include: " + strings.Join(added, ", ")})
	}

	batch := v.engine.TrackAll(targets)
	v.addBatch(res, "track", batch, false)

	if configChanged || batch.Changed() > 0 {
		names := added
		if len(names) == 0 {
			names = args
		}
		v.commit(ctx, res, "Add "+strings.Join(names, ", "))
	}
	return settle(res), nil
}

// Remove stops managing each argument: the pattern leaves include, or is
// excluded when it was matched by a broader pattern. Matching paths get
// their content moved back home.
func (v *Vault) Remove(ctx context.Context, args []string) (*types.Result, error) {
	done := logging.LogOperationStart(v.logger, "remove")
	defer done()

	res := types.NewResult("remove")
	if len(args) == 0 {
		return nil, errors.New(errors.ErrInvalidInput, "no paths given")
	}

	var removed []string
	var targets []string
	seen := mapset.NewThreadUnsafeSet[string]()

	for _, arg := range args {
		pattern, err := v.argPattern(arg)
		if err != nil {
			res.AddError("remove", arg, err)
			continue
		}
		matched, err := v.resolve([]string{pattern}, nil)
		if err != nil {
			res.AddError("remove", arg, err)
			continue
		}

		wasIncluded := slices.Contains(v.cfg.Include, pattern)
		if !wasIncluded && len(matched) == 0 {
			res.Add(types.Step{Name: "remove", Target: pattern, Outcome: types.OutcomeWarning, Message: "not tracked"})
			continue
		}

		remaining := slices.DeleteFunc(slices.Clone(v.cfg.Include), func(p string) bool { return p == pattern })
		stillDeclared, err := v.resolve(remaining, v.cfg.Exclude)
		if err != nil {
			res.AddError("remove", arg, err)
			continue
		}
		if wasIncluded {
			v.cfg.RemoveInclude(pattern)
		}
		if !wasIncluded || overlaps(matched, stillDeclared) {
			v.cfg.AddExclude(pattern)
		}

		removed = append(removed, pattern)
		for _, m := range matched {
			if !seen.Contains(m) {
				seen.Add(m)
				targets = append(targets, m)
			}
		}
	}

	if len(removed) == 0 {
		return settle(res), nil
	}

	if err := v.cfg.Save(); err != nil {
		res.AddError("config", v.display(v.paths.ConfigFile()), err)
		return res, nil
	}
	res.Add(types.Step{Name: "config", Target: v.display(v.paths.ConfigFile()), Outcome: types.OutcomeSuccess, Message: "removed: " + strings.Join(removed, ", ")})

	batch := v.engine.UntrackAll(targets)
	v.addBatch(res, "untrack", batch, false)

	v.commit(ctx, res, "Remove "+strings.Join(removed, ", "))
	return settle(res), nil
}

// argPattern validates an operator argument and returns its stored form
func (v *Vault) argPattern(arg string) (string, error) {
	pattern, err := v.pattern(arg)
	if err != nil {
		return "", err
	}
	abs, _ := v.paths.NormalizePath(arg)
	if v.paths.IsInRepository(abs) || abs == v.paths.LockFile() {
		return "", errors.Newf(errors.ErrInvalidInput, "%s is managed by dotvault itself", arg).WithDetail("path", abs)
	}
	if err := glob.Validate(pattern); err != nil {
		return "", err
	}
	return pattern, nil
}

func overlaps(a, b []string) bool {
	set := mapset.NewThreadUnsafeSet(b...)
	for _, p := range a {
		if set.Contains(p) {
			return true
		}
	}
	return false
}
