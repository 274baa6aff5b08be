package upload

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	appErrors "github.com/unclebandit/phonathon-backend/internal/errors"
	"github.com/unclebandit/phonathon-backend/internal/model"
	"github.com/unclebandit/phonathon-backend/internal/repository"
)

// entity is a model pointer the reconciler can validate and log.
type entity[T any] interface {
	*T
	fmt.Stringer
	Validate() error
}

// keyedRepo is a repository whose natural key is one string.
type keyedRepo[T any] interface {
	GetByNaturalKey(ctx context.Context, key string) (*T, error)
	Create(ctx context.Context, obj *T) error
	Update(ctx context.Context, obj *T) error
}

func required(entity string, row Row, name string) (string, error) {
	v := row[name]
	if v == "" {
		return "", appErrors.NewValidation(entity, name, "this field is required")
	}
	return v, nil
}

// reference resolves a foreign natural key, turning not-found into a
// missing reference against entity.
func reference[T any](entity, ref, key string, get func() (T, error)) (T, error) {
	v, err := get()
	if appErrors.IsNotFound(err) {
		var zero T
		return zero, appErrors.NewMissingReference(entity, ref, key)
	}
	return v, err
}

// upsertByKey builds the row function for entities keyed by one field.
func upsertByKey[T any, P entity[T]](
	name, key string,
	fields fieldSet[T],
	repoOf func(*repository.Repositories) keyedRepo[T],
	init func(key string) *T,
) rowFunc[P] {
	return func(ctx context.Context, repos *repository.Repositories, row Row) (outcome[P], error) {
		k, err := required(name, row, key)
		if err != nil {
			return outcome[P]{}, err
		}
		repo := repoOf(repos)

		created := false
		obj, err := repo.GetByNaturalKey(ctx, k)
		switch {
		case err == nil:
		case appErrors.IsNotFound(err):
			obj, created = init(k), true
		default:
			return outcome[P]{}, err
		}

		changed, err := fields.apply(name, obj, row, key)
		if err != nil {
			return outcome[P]{}, err
		}
		if err := P(obj).Validate(); err != nil {
			return outcome[P]{}, err
		}
		if created {
			err = repo.Create(ctx, obj)
		} else {
			err = repo.Update(ctx, obj)
		}
		if err != nil {
			return outcome[P]{}, err
		}
		return outcome[P]{item: P(obj), created: created, changed: changed}, nil
	}
}

var prospectFields = fieldSet[model.Prospect]{
	"salutation":       stringField(func(p *model.Prospect) *string { return &p.Salutation }),
	"name":             stringField(func(p *model.Prospect) *string { return &p.Name }),
	"gender":           stringField(func(p *model.Prospect) *string { return &p.Gender }),
	"email":            stringField(func(p *model.Prospect) *string { return &p.Email }),
	"address_1":        stringField(func(p *model.Prospect) *string { return &p.Address1 }),
	"address_2":        stringField(func(p *model.Prospect) *string { return &p.Address2 }),
	"address_3":        stringField(func(p *model.Prospect) *string { return &p.Address3 }),
	"address_postal":   stringField(func(p *model.Prospect) *string { return &p.AddressPostal }),
	"phone_home":       stringField(func(p *model.Prospect) *string { return &p.PhoneHome }),
	"phone_mobile":     stringField(func(p *model.Prospect) *string { return &p.PhoneMobile }),
	"education_school": stringField(func(p *model.Prospect) *string { return &p.EducationSchool }),
	"education_degree": stringField(func(p *model.Prospect) *string { return &p.EducationDegree }),
	"education_year":   intField(func(p *model.Prospect) *int { return &p.EducationYear }),
}

var upsertProspect = upsertByKey[model.Prospect, *model.Prospect](
	"Prospect", "nric", prospectFields,
	func(rs *repository.Repositories) keyedRepo[model.Prospect] { return rs.Prospects },
	func(nric string) *model.Prospect { return &model.Prospect{NRIC: nric} },
)

// Prospects upserts prospects by NRIC.
func (r *Reconciler) Prospects(ctx context.Context, rows []Row) (*Result[*model.Prospect], error) {
	return run(ctx, r, "Prospect", Records(rows), upsertProspect, nil)
}

var upsertFund = upsertByKey[model.Fund, *model.Fund](
	"Fund", "name", fieldSet[model.Fund]{},
	func(rs *repository.Repositories) keyedRepo[model.Fund] { return rs.Funds },
	func(name string) *model.Fund { return &model.Fund{Name: name} },
)

// Funds upserts funds by name.
func (r *Reconciler) Funds(ctx context.Context, rows []Row) (*Result[*model.Fund], error) {
	return run(ctx, r, "Fund", Records(rows), upsertFund, nil)
}

var upsertProject = upsertByKey[model.Project, *model.Project](
	"Project", "name", fieldSet[model.Project]{},
	func(rs *repository.Repositories) keyedRepo[model.Project] { return rs.Projects },
	func(name string) *model.Project { return &model.Project{Name: name} },
)

// Projects upserts projects by name.
func (r *Reconciler) Projects(ctx context.Context, rows []Row) (*Result[*model.Project], error) {
	return run(ctx, r, "Project", Records(rows), upsertProject, nil)
}

var resultCodeFields = fieldSet[model.ResultCode]{
	"is_complete": boolField(func(rc *model.ResultCode) *bool { return &rc.IsComplete }),
}

// New codes are complete unless the row says otherwise.
var upsertResultCode = upsertByKey[model.ResultCode, *model.ResultCode](
	"ResultCode", "result_code", resultCodeFields,
	func(rs *repository.Repositories) keyedRepo[model.ResultCode] { return rs.ResultCodes },
	func(code string) *model.ResultCode { return &model.ResultCode{ResultCode: code, IsComplete: true} },
)

// ResultCodes upserts result codes by code.
func (r *Reconciler) ResultCodes(ctx context.Context, rows []Row) (*Result[*model.ResultCode], error) {
	return run(ctx, r, "ResultCode", Records(rows), upsertResultCode, nil)
}

var userFields = fieldSet[model.User]{
	"name":         stringField(func(u *model.User) *string { return &u.Name }),
	"email":        stringField(func(u *model.User) *string { return &u.Email }),
	"is_superuser": boolField(func(u *model.User) *bool { return &u.IsSuperuser }),
	"is_staff":     boolField(func(u *model.User) *bool { return &u.IsStaff }),
	"is_active":    boolField(func(u *model.User) *bool { return &u.IsActive }),
	"date_joined":  dateField(func(u *model.User) *time.Time { return &u.DateJoined }),
}

// Users upserts callers by username. The password defaults to the username
// and is always re-hashed, so an upload resets it. A "groups" cell adds the
// user to the named groups, separated by ";" or ",", and recomputes staff.
func (r *Reconciler) Users(ctx context.Context, rows []Row) (*Result[*model.User], error) {
	return run(ctx, r, "User", Records(rows), upsertUser(false), nil)
}

// upsertUser builds the user row function. With keepPassword an existing
// user's password only changes when the row carries one.
func upsertUser(keepPassword bool) rowFunc[*model.User] {
	return func(ctx context.Context, repos *repository.Repositories, row Row) (outcome[*model.User], error) {
		return applyUser(ctx, repos, row, keepPassword)
	}
}

func applyUser(ctx context.Context, repos *repository.Repositories, row Row, keepPassword bool) (outcome[*model.User], error) {
	const name = "User"
	username, err := required(name, row, "username")
	if err != nil {
		return outcome[*model.User]{}, err
	}
	password, resetPassword := row["password"], true
	if password == "" {
		password = username
		resetPassword = !keepPassword
	}

	created := false
	u, err := repos.Users.GetByNaturalKey(ctx, username)
	switch {
	case err == nil:
	case appErrors.IsNotFound(err):
		u = &model.User{Username: username, IsActive: true, DateJoined: today()}
		created = true
	default:
		return outcome[*model.User]{}, err
	}

	changed, err := userFields.apply(name, u, row, "username", "password", "groups")
	if err != nil {
		return outcome[*model.User]{}, err
	}
	if created || resetPassword {
		if err := u.SetPassword(password); err != nil {
			return outcome[*model.User]{}, appErrors.NewValidation(name, "password", err.Error())
		}
		if !created {
			changed = append(changed, "password")
		}
	}
	if err := u.Validate(); err != nil {
		return outcome[*model.User]{}, err
	}
	if created {
		err = repos.Users.Create(ctx, u)
	} else {
		err = repos.Users.Update(ctx, u)
	}
	if err != nil {
		return outcome[*model.User]{}, err
	}

	if groups := splitList(row["groups"]); len(groups) > 0 {
		for _, g := range groups {
			_, err := reference(name, "Group", g, func() (struct{}, error) {
				return struct{}{}, repos.Users.AddToGroup(ctx, u.ID, g)
			})
			if err != nil {
				return outcome[*model.User]{}, err
			}
		}
		if u.IsStaff, err = repos.Users.SyncStaff(ctx, u.ID); err != nil {
			return outcome[*model.User]{}, err
		}
		if u.Groups, err = repos.Users.GroupNames(ctx, u.ID); err != nil {
			return outcome[*model.User]{}, err
		}
		changed = append(changed, "groups")
	}
	return outcome[*model.User]{item: u, created: created, changed: changed}, nil
}

func today() time.Time {
	y, m, d := time.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(v, func(r rune) bool { return r == ';' || r == ',' }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// checkFields rejects columns outside allowed.
func checkFields(entity string, row Row, allowed ...string) error {
outer:
	for _, k := range row.Keys() {
		for _, a := range allowed {
			if k == a {
				continue outer
			}
		}
		return appErrors.NewValidation(entity, k, "unknown field")
	}
	return nil
}

// Pledges creates pledges that are not already recorded. Every column is
// part of the natural key, so a matching row changes nothing.
func (r *Reconciler) Pledges(ctx context.Context, rows []Row) (*Result[*model.Pledge], error) {
	return run(ctx, r, "Pledge", Records(rows), upsertPledge, nil)
}

func upsertPledge(ctx context.Context, repos *repository.Repositories, row Row) (outcome[*model.Pledge], error) {
	const name = "Pledge"
	fail := func(err error) (outcome[*model.Pledge], error) { return outcome[*model.Pledge]{}, err }

	if err := checkFields(name, row, "prospect", "pledge_fund", "pledge_amount", "pledge_date"); err != nil {
		return fail(err)
	}
	nric, err := required(name, row, "prospect")
	if err != nil {
		return fail(err)
	}
	fundName, err := required(name, row, "pledge_fund")
	if err != nil {
		return fail(err)
	}
	rawAmount, err := required(name, row, "pledge_amount")
	if err != nil {
		return fail(err)
	}
	rawDate, err := required(name, row, "pledge_date")
	if err != nil {
		return fail(err)
	}

	prospect, err := reference(name, "Prospect", nric, func() (*model.Prospect, error) {
		return repos.Prospects.GetByNaturalKey(ctx, nric)
	})
	if err != nil {
		return fail(err)
	}
	fund, err := reference(name, "Fund", fundName, func() (*model.Fund, error) {
		return repos.Funds.GetByNaturalKey(ctx, fundName)
	})
	if err != nil {
		return fail(err)
	}
	amount, err := parseAmount(rawAmount)
	if err != nil {
		return fail(appErrors.NewValidation(name, "pledge_amount", err.Error()))
	}
	date, err := parseDate(rawDate)
	if err != nil {
		return fail(appErrors.NewValidation(name, "pledge_date", err.Error()))
	}

	existing, err := repos.Pledges.GetByNaturalKey(ctx, prospect.ID, fund.ID, date, amount)
	if err == nil {
		existing.Prospect, existing.Fund = prospect, fund
		return outcome[*model.Pledge]{item: existing}, nil
	}
	if !appErrors.IsNotFound(err) {
		return fail(err)
	}

	p := &model.Pledge{
		ProspectID: prospect.ID,
		FundID:     fund.ID,
		Amount:     amount,
		Date:       date,
		Prospect:   prospect,
		Fund:       fund,
	}
	if err := p.Validate(); err != nil {
		return fail(err)
	}
	if err := repos.Pledges.Create(ctx, p); err != nil {
		return fail(err)
	}
	return outcome[*model.Pledge]{item: p, created: true}, nil
}

var callFields = fieldSet[model.Call]{
	"comment":       stringField(func(c *model.Call) *string { return &c.Comment }),
	"pledge_amount": nullDecimalField(func(c *model.Call) *decimal.NullDecimal { return &c.PledgeAmount }),
	"pledge_method": stringField(func(c *model.Call) *string { return &c.PledgeMethod }),
	"pledge_meta":   stringField(func(c *model.Call) *string { return &c.PledgeMeta }),
}

// Calls upserts calls by (caller, prospect, project, pool, attempt). A blank
// pool records a call outside any pool. Creating a call raises the pool
// member's attempt counter.
func (r *Reconciler) Calls(ctx context.Context, rows []Row) (*Result[*model.Call], error) {
	return run(ctx, r, "Call", Records(rows), upsertCall, nil)
}

func upsertCall(ctx context.Context, repos *repository.Repositories, row Row) (outcome[*model.Call], error) {
	const name = "Call"
	fail := func(err error) (outcome[*model.Call], error) { return outcome[*model.Call]{}, err }

	var keys [5]string
	for i, f := range []string{"caller", "prospect", "project", "attempt", "result_code"} {
		v, err := required(name, row, f)
		if err != nil {
			return fail(err)
		}
		keys[i] = v
	}
	username, nric, projectName, rawAttempt, code := keys[0], keys[1], keys[2], keys[3], keys[4]
	poolName := row["pool"]

	caller, err := reference(name, "User", username, func() (*model.User, error) {
		return repos.Users.GetByNaturalKey(ctx, username)
	})
	if err != nil {
		return fail(err)
	}
	prospect, err := reference(name, "Prospect", nric, func() (*model.Prospect, error) {
		return repos.Prospects.GetByNaturalKey(ctx, nric)
	})
	if err != nil {
		return fail(err)
	}
	project, err := reference(name, "Project", projectName, func() (*model.Project, error) {
		return repos.Projects.GetByNaturalKey(ctx, projectName)
	})
	if err != nil {
		return fail(err)
	}
	var poolID *int64
	if poolName != "" {
		pool, err := reference(name, "Pool", projectName+"/"+poolName, func() (*model.Pool, error) {
			return repos.Pools.GetByNaturalKey(ctx, project.ID, poolName)
		})
		if err != nil {
			return fail(err)
		}
		poolID = &pool.ID
	}
	resultCode, err := reference(name, "ResultCode", code, func() (*model.ResultCode, error) {
		return repos.ResultCodes.GetByNaturalKey(ctx, code)
	})
	if err != nil {
		return fail(err)
	}
	attempt, err := strconv.Atoi(rawAttempt)
	if err != nil {
		return fail(appErrors.NewValidation(name, "attempt", errNotInteger.Error()))
	}

	key := repository.CallKey{
		CallerID:   caller.ID,
		ProspectID: prospect.ID,
		ProjectID:  project.ID,
		PoolID:     poolID,
		Attempt:    attempt,
	}
	created := false
	c, err := repos.Calls.GetByNaturalKey(ctx, key)
	switch {
	case err == nil:
	case appErrors.IsNotFound(err):
		c = &model.Call{
			CallerID:   caller.ID,
			ProspectID: prospect.ID,
			ProjectID:  project.ID,
			PoolID:     poolID,
			Attempt:    attempt,
		}
		created = true
	default:
		return fail(err)
	}

	var changed []string
	if c.ResultCodeID != resultCode.ID {
		c.ResultCodeID = resultCode.ID
		if !created {
			changed = append(changed, "result_code")
		}
	}
	more, err := callFields.apply(name, c, row, "caller", "prospect", "project", "pool", "attempt", "result_code")
	if err != nil {
		return fail(err)
	}
	changed = append(changed, more...)
	c.Caller, c.Prospect = caller, prospect

	if err := c.Validate(); err != nil {
		return fail(err)
	}
	if created {
		err = repos.Calls.Create(ctx, c)
	} else {
		err = repos.Calls.Update(ctx, c)
	}
	if err != nil {
		return fail(err)
	}
	if created && poolID != nil {
		if err := repos.Pools.RaiseAttempts(ctx, *poolID, prospect.ID, attempt); err != nil {
			return fail(err)
		}
	}
	return outcome[*model.Call]{item: c, created: created, changed: changed}, nil
}

var assignmentFields = fieldSet[model.Assignment]{
	"order": intField(func(a *model.Assignment) *int { return &a.Order }),
}

// Assignments upserts pool assignments by (caller, pool). The pool is
// named within project.
func (r *Reconciler) Assignments(ctx context.Context, rows []Row) (*Result[*model.Assignment], error) {
	return run(ctx, r, "Assignment", Records(rows), upsertAssignment, nil)
}

func upsertAssignment(ctx context.Context, repos *repository.Repositories, row Row) (outcome[*model.Assignment], error) {
	const name = "Assignment"
	fail := func(err error) (outcome[*model.Assignment], error) { return outcome[*model.Assignment]{}, err }

	username, err := required(name, row, "caller")
	if err != nil {
		return fail(err)
	}
	projectName, err := required(name, row, "project")
	if err != nil {
		return fail(err)
	}
	poolName, err := required(name, row, "pool")
	if err != nil {
		return fail(err)
	}

	caller, err := reference(name, "User", username, func() (*model.User, error) {
		return repos.Users.GetByNaturalKey(ctx, username)
	})
	if err != nil {
		return fail(err)
	}
	project, err := reference(name, "Project", projectName, func() (*model.Project, error) {
		return repos.Projects.GetByNaturalKey(ctx, projectName)
	})
	if err != nil {
		return fail(err)
	}
	pool, err := reference(name, "Pool", projectName+"/"+poolName, func() (*model.Pool, error) {
		return repos.Pools.GetByNaturalKey(ctx, project.ID, poolName)
	})
	if err != nil {
		return fail(err)
	}

	created := false
	a, err := repos.Assignments.GetByNaturalKey(ctx, caller.ID, pool.ID)
	switch {
	case err == nil:
	case appErrors.IsNotFound(err):
		a = &model.Assignment{CallerID: caller.ID, PoolID: pool.ID}
		created = true
	default:
		return fail(err)
	}

	changed, err := assignmentFields.apply(name, a, row, "caller", "project", "pool")
	if err != nil {
		return fail(err)
	}
	a.Caller, a.Pool = caller, pool

	if err := a.Validate(); err != nil {
		return fail(err)
	}
	if created {
		err = repos.Assignments.Create(ctx, a)
	} else {
		err = repos.Assignments.Update(ctx, a)
	}
	if err != nil {
		return fail(err)
	}
	return outcome[*model.Assignment]{item: a, created: created, changed: changed}, nil
}
