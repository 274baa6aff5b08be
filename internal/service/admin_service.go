package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/phonathon-backend/internal/errors"
	"github.com/unclebandit/phonathon-backend/internal/model"
	"github.com/unclebandit/phonathon-backend/internal/repository"
	"github.com/unclebandit/phonathon-backend/internal/upload"
)

// crud is the slice of a repository the admin API needs.
type crud[T any] interface {
	GetByID(ctx context.Context, id int64) (*T, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, offset, limit int) ([]*T, int, error)
}

type resource struct {
	// model is the reconciler model for upserts; empty when not supported.
	model string
	list  func(ctx context.Context, r *repository.Repositories, offset, limit int) (any, int, error)
	get   func(ctx context.Context, r *repository.Repositories, id int64) (any, error)
	del   func(ctx context.Context, r *repository.Repositories, id int64) error
}

func makeResource[T any](uploadModel string, pick func(*repository.Repositories) crud[T]) resource {
	return resource{
		model: uploadModel,
		list: func(ctx context.Context, r *repository.Repositories, offset, limit int) (any, int, error) {
			return pick(r).List(ctx, offset, limit)
		},
		get: func(ctx context.Context, r *repository.Repositories, id int64) (any, error) {
			return pick(r).GetByID(ctx, id)
		},
		del: func(ctx context.Context, r *repository.Repositories, id int64) error {
			return pick(r).Delete(ctx, id)
		},
	}
}

// Resources in the order the admin index lists them.
var ResourceNames = []string{
	model.ResourceUser, model.ResourceProspect, model.ResourcePledge, model.ResourceFund,
	model.ResourceProject, model.ResourcePool, model.ResourceResultCode, model.ResourceCall,
	model.ResourceAssignment,
}

var resources = map[string]resource{
	model.ResourceUser: makeResource(upload.ModelCaller, func(r *repository.Repositories) crud[model.User] { return r.Users }),
	model.ResourceProspect: makeResource(upload.ModelProspect, func(r *repository.Repositories) crud[model.Prospect] {
		return r.Prospects
	}),
	model.ResourcePledge: makeResource(upload.ModelPledge, func(r *repository.Repositories) crud[model.Pledge] { return r.Pledges }),
	model.ResourceFund:   makeResource(upload.ModelFund, func(r *repository.Repositories) crud[model.Fund] { return r.Funds }),
	model.ResourceProject: makeResource(upload.ModelProject, func(r *repository.Repositories) crud[model.Project] {
		return r.Projects
	}),
	model.ResourcePool: makeResource("", func(r *repository.Repositories) crud[model.Pool] { return r.Pools }),
	model.ResourceResultCode: makeResource(upload.ModelResultCode, func(r *repository.Repositories) crud[model.ResultCode] {
		return r.ResultCodes
	}),
	model.ResourceCall: makeResource(upload.ModelCall, func(r *repository.Repositories) crud[model.Call] { return r.Calls }),
	model.ResourceAssignment: makeResource(upload.ModelAssignment, func(r *repository.Repositories) crud[model.Assignment] {
		return r.Assignments
	}),
}

// GroupMembership changes a user's groups and keeps their staff flag in step.
type GroupMembership interface {
	AddToGroup(ctx context.Context, userID int64, group string) (*model.User, error)
	RemoveFromGroup(ctx context.Context, userID int64, group string) (*model.User, error)
}

var _ GroupMembership = (*AuthService)(nil)

// superuserFields are user fields only superusers may write.
var superuserFields = []string{"is_superuser", "is_staff"}

// AdminService is the permission-gated CRUD surface over every entity.
// Writes go through the reconciler so they follow upload semantics.
type AdminService struct {
	Repos      *repository.Repositories
	Reconciler *upload.Reconciler
	Members    GroupMembership
	Log        *zap.Logger
}

func NewAdminService(repos *repository.Repositories, rec *upload.Reconciler, members GroupMembership, log *zap.Logger) *AdminService {
	return &AdminService{Repos: repos, Reconciler: rec, Members: members, Log: nopIfNil(log).Named("admin")}
}

// ResourceInfo is one entry of the admin index.
type ResourceInfo struct {
	Name    string         `json:"name"`
	Actions []model.Action `json:"actions"`
}

// Page is one page of a resource listing.
type Page struct {
	Resource   string `json:"resource"`
	Items      any    `json:"items"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	TotalCount int    `json:"total_count"`
	TotalPages int    `json:"total_pages"`
}

func (s *AdminService) authorize(u *model.User, name string, actions ...model.Action) (resource, error) {
	res, ok := resources[name]
	if !ok {
		return resource{}, fmt.Errorf("%w: %q", appErrors.ErrUnknownResource, name)
	}
	if u == nil || !u.IsStaff && !u.IsSuperuser {
		return resource{}, appErrors.ErrPermissionDenied
	}
	for _, a := range actions {
		if u.Can(name, a) {
			return res, nil
		}
	}
	return resource{}, s.deny(u, name, actions...)
}

func (s *AdminService) deny(u *model.User, name string, actions ...model.Action) error {
	s.Log.Info("permission denied", zap.String("username", u.Username), zap.String("resource", name), zap.Any("actions", actions))
	return appErrors.ErrPermissionDenied
}

// Index lists the resources u may view with the actions u holds on each.
func (s *AdminService) Index(u *model.User) []ResourceInfo {
	out := []ResourceInfo{}
	for _, name := range ResourceNames {
		if !u.Can(name, model.ActionView) {
			continue
		}
		info := ResourceInfo{Name: name}
		for _, a := range []model.Action{model.ActionView, model.ActionAdd, model.ActionChange, model.ActionDelete} {
			if u.Can(name, a) {
				info.Actions = append(info.Actions, a)
			}
		}
		out = append(out, info)
	}
	return out
}

// List returns one page of a resource.
func (s *AdminService) List(ctx context.Context, u *model.User, name string, page, pageSize int) (*Page, error) {
	res, err := s.authorize(u, name, model.ActionView)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	items, total, err := res.list(ctx, s.Repos, offset, pageSize)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", name, err)
	}
	return &Page{
		Resource:   name,
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

func (s *AdminService) Get(ctx context.Context, u *model.User, name string, id int64) (any, error) {
	res, err := s.authorize(u, name, model.ActionView)
	if err != nil {
		return nil, err
	}
	return res.get(ctx, s.Repos, id)
}

func (s *AdminService) Delete(ctx context.Context, u *model.User, name string, id int64) error {
	res, err := s.authorize(u, name, model.ActionDelete)
	if err != nil {
		return err
	}
	if err := res.del(ctx, s.Repos, id); err != nil {
		return err
	}
	s.Log.Info("deleted", zap.String("username", u.Username), zap.String("resource", name), zap.Int64("id", id))
	return nil
}

// Upsert reconciles one JSON object as an upload row of the resource's
// model. Creating needs add permission and updating needs change. Only
// superusers write superuser accounts or the superuser and staff flags, and
// only managers write groups. A skipped row is returned as its RowError.
func (s *AdminService) Upsert(ctx context.Context, u *model.User, name string, obj map[string]any) (*upload.Summary, error) {
	res, err := s.authorize(u, name, model.ActionAdd, model.ActionChange)
	if err != nil {
		return nil, err
	}
	if res.model == "" {
		return nil, fmt.Errorf("%w: %q", appErrors.ErrUnsupportedModel, name)
	}
	if name == model.ResourceUser {
		for _, f := range superuserFields {
			if _, ok := obj[f]; ok && !u.IsSuperuser {
				return nil, s.deny(u, name, model.ActionChange)
			}
		}
		if _, ok := obj["groups"]; ok && !u.IsManagerAndAbove() {
			return nil, s.deny(u, name, model.ActionChange)
		}
	}
	row, err := toRow(name, obj)
	if err != nil {
		return nil, err
	}

	guard := func(created bool, item fmt.Stringer) error {
		action := model.ActionChange
		if created {
			action = model.ActionAdd
		}
		if !u.Can(name, action) {
			return appErrors.ErrPermissionDenied
		}
		if target, ok := item.(*model.User); ok && target.IsSuperuser && !u.IsSuperuser {
			return appErrors.ErrPermissionDenied
		}
		return nil
	}
	sum, err := s.Reconciler.Edit(ctx, res.model, row, guard)
	if errors.Is(err, appErrors.ErrPermissionDenied) {
		return nil, s.deny(u, name, model.ActionAdd, model.ActionChange)
	}
	if err != nil {
		return sum, err
	}
	if len(sum.Skipped) > 0 {
		return sum, sum.Skipped[0]
	}
	s.Log.Info("saved",
		zap.String("username", u.Username),
		zap.String("resource", name),
		zap.Strings("created", sum.Created),
		zap.Strings("updated", sum.Updated),
	)
	return sum, nil
}

// SetGroup adds the user to group, or removes them when member is false.
// Groups grant permissions, so a manager with user change permission is
// needed, and only superusers touch superuser accounts.
func (s *AdminService) SetGroup(ctx context.Context, u *model.User, userID int64, group string, member bool) (*model.User, error) {
	if _, err := s.authorize(u, model.ResourceUser, model.ActionChange); err != nil {
		return nil, err
	}
	if !u.IsManagerAndAbove() {
		return nil, s.deny(u, model.ResourceUser, model.ActionChange)
	}
	target, err := s.Repos.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if target.IsSuperuser && !u.IsSuperuser {
		return nil, s.deny(u, model.ResourceUser, model.ActionChange)
	}

	change := s.Members.RemoveFromGroup
	if member {
		change = s.Members.AddToGroup
	}
	return change(ctx, userID, group)
}

// toRow flattens decoded JSON scalars into upload cells.
func toRow(entity string, obj map[string]any) (upload.Row, error) {
	row := make(upload.Row, len(obj))
	for k, v := range obj {
		switch v := v.(type) {
		case nil:
			row[k] = ""
		case string:
			row[k] = v
		case bool:
			row[k] = strconv.FormatBool(v)
		case float64:
			row[k] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return nil, appErrors.NewValidation(entity, k, "must be a string, number, boolean or null")
		}
	}
	return row, nil
}
