package records

import (
	"context"
	"strings"
	"sync"

	"fintrack/internal/api"
	"fintrack/internal/core"
)

type CategoryAPI interface {
	ListCategories(ctx context.Context, userID core.ID) ([]core.Category, error)
	AddCategory(ctx context.Context, userID core.ID, name string) (core.ID, error)
	UpdateCategory(ctx context.Context, userID, id core.ID, name string) (int, error)
	DeleteCategory(ctx context.Context, userID, id core.ID) (int, error)
}

var _ CategoryAPI = (*api.Client)(nil)

type CategoryFields struct {
	Name string
}

type categoryAdapter struct {
	api CategoryAPI
}

var _ Adapter[core.Category, CategoryFields] = categoryAdapter{}

type Categories = Controller[core.Category, CategoryFields]

func NewCategories(client CategoryAPI, owner OwnerSource, opts ...Option) *Categories {
	return NewController[core.Category, CategoryFields](categoryAdapter{api: client}, owner, opts...)
}

func (categoryAdapter) Kind() Kind {
	return Kind{Noun: "category", Title: "Category", Plural: "categories", AddNoun: "categories"}
}

func (categoryAdapter) Validate(f CategoryFields) error {
	if strings.TrimSpace(f.Name) == "" {
		return invalid(core.ErrEmptyName, "Category name cannot be empty")
	}
	return nil
}

func (a categoryAdapter) List(ctx context.Context, owner core.ID) ([]core.Category, error) {
	return a.api.ListCategories(ctx, owner)
}

func (a categoryAdapter) Add(ctx context.Context, owner core.ID, f CategoryFields) (core.ID, error) {
	return a.api.AddCategory(ctx, owner, strings.TrimSpace(f.Name))
}

func (a categoryAdapter) Update(ctx context.Context, owner, id core.ID, f CategoryFields) (int, error) {
	return a.api.UpdateCategory(ctx, owner, id, strings.TrimSpace(f.Name))
}

func (a categoryAdapter) Delete(ctx context.Context, owner, id core.ID) (int, error) {
	return a.api.DeleteCategory(ctx, owner, id)
}

func (categoryAdapter) Build(owner, id core.ID, f CategoryFields, _ string) core.Category {
	return core.Category{ID: id, Name: strings.TrimSpace(f.Name), UserID: owner}
}

func (categoryAdapter) Patch(cur core.Category, f CategoryFields) core.Category {
	cur.Name = strings.TrimSpace(f.Name)
	return cur
}

// CategoryOptionsAPI lists the categories offered by the expense form.
type CategoryOptionsAPI interface {
	CategoriesDropdown(ctx context.Context, userID core.ID) ([]core.Category, error)
}

var _ CategoryOptionsAPI = (*api.Client)(nil)

// CategoryOptions is the read-only category list behind the expense form.
type CategoryOptions struct {
	api    CategoryOptionsAPI
	owner  OwnerSource
	notify Notifier

	mu    sync.Mutex
	items []core.Category
}

func NewCategoryOptions(client CategoryOptionsAPI, owner OwnerSource, notify Notifier) *CategoryOptions {
	if notify == nil {
		notify = nopNotifier{}
	}
	return &CategoryOptions{api: client, owner: owner, notify: notify}
}

func (o *CategoryOptions) Load(ctx context.Context) error {
	owner, ok := o.owner.OwnerID()
	if !ok {
		o.mu.Lock()
		o.items = nil
		o.mu.Unlock()
		return nil
	}
	items, err := o.api.CategoriesDropdown(ctx, owner)
	if err != nil {
		o.notify.Notify(Notification{Level: LevelError, Message: "Failed to load categories for dropdown"})
		return err
	}
	o.mu.Lock()
	o.items = append([]core.Category(nil), items...)
	o.mu.Unlock()
	return nil
}

func (o *CategoryOptions) Options() []core.Category {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]core.Category(nil), o.items...)
}

// Default is the first option, preselected by the form.
func (o *CategoryOptions) Default() (core.Category, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.items) == 0 {
		return core.Category{}, false
	}
	return o.items[0], true
}

func (o *CategoryOptions) Find(id core.ID) (core.Category, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return core.FindCategory(o.items, id)
}
