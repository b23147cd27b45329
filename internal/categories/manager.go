// Package categories manages the category forest: creation, moves,
// guarded deletion, listing, reference resolution and default seeding.
package categories

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cleared-dev/releve/internal/model"
)

// Store is the persistence the manager needs.
type Store interface {
	CreateCategory(ctx context.Context, c model.Category) (model.Category, error)
	GetCategory(ctx context.Context, id int64) (model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	UpdateCategory(ctx context.Context, c model.Category) error
	UpdateCategories(ctx context.Context, cats []model.Category) error
	DeleteCategory(ctx context.Context, id int64) error
	CategoryRefs(ctx context.Context, id int64) (model.CategoryRefs, error)
}

// Manager enforces the forest invariants on top of a Store: sibling names
// are unique and no category is its own ancestor.
type Manager struct {
	store Store
}

// NewManager creates a Manager.
func NewManager(s Store) *Manager {
	return &Manager{store: s}
}

// CreateParams describes a new category. ParentID 0 creates a root. Kind
// is taken from the parent for children and defaults to expense for roots.
type CreateParams struct {
	Name        string
	ParentID    int64
	Kind        model.CategoryKind
	Description string
	Color       string
}

// validName trims name and rejects empty names and names containing the
// path separator, which Resolve could not address.
func validName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &model.ReferenceError{Entity: "category", Err: fmt.Errorf("%w: empty name", model.ErrInvalid)}
	}
	if sep := strings.TrimSpace(PathSeparator); strings.Contains(name, sep) {
		return "", &model.ReferenceError{Entity: "category", Ref: fmt.Sprintf("%q", name),
			Err: fmt.Errorf("%w: name must not contain %q", model.ErrInvalid, sep)}
	}
	return name, nil
}

func refErr(id int64, err error) *model.ReferenceError {
	return &model.ReferenceError{Entity: "category", Ref: fmt.Sprintf("#%d", id), Err: err}
}

// Forest loads a snapshot of the hierarchy.
func (m *Manager) Forest(ctx context.Context) (*Forest, error) {
	cats, err := m.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return NewForest(cats), nil
}

// Create adds a category.
func (m *Manager) Create(ctx context.Context, p CreateParams) (model.Category, error) {
	name, err := validName(p.Name)
	if err != nil {
		return model.Category{}, err
	}

	f, err := m.Forest(ctx)
	if err != nil {
		return model.Category{}, err
	}

	kind := p.Kind
	if p.ParentID != 0 {
		parent, ok := f.Get(p.ParentID)
		if !ok {
			return model.Category{}, model.NotFound("category", p.ParentID)
		}
		kind = parent.Kind
	}
	if kind == "" {
		kind = model.KindExpense
	}
	if kind != model.KindExpense && kind != model.KindIncome {
		return model.Category{}, &model.ReferenceError{Entity: "category", Ref: fmt.Sprintf("%q", name),
			Err: fmt.Errorf("%w: unknown kind %q", model.ErrInvalid, kind)}
	}

	for _, sib := range f.Children(p.ParentID) {
		if sib.Name == name {
			return model.Category{}, &model.ReferenceError{Entity: "category", Ref: fmt.Sprintf("%q", name), Err: model.ErrConflict}
		}
	}

	c, err := m.store.CreateCategory(ctx, model.Category{
		Name:        name,
		ParentID:    p.ParentID,
		Kind:        kind,
		Description: p.Description,
		Color:       p.Color,
	})
	if err != nil {
		return model.Category{}, fmt.Errorf("creating category %q: %w", name, err)
	}
	return c, nil
}

// Move reparents id under newParent (0 = make it a root). Moving a
// category under itself or one of its descendants fails with ErrCycle and
// changes nothing. The moved subtree takes the kind of its new root.
func (m *Manager) Move(ctx context.Context, id, newParent int64) (model.Category, error) {
	f, err := m.Forest(ctx)
	if err != nil {
		return model.Category{}, err
	}
	c, ok := f.Get(id)
	if !ok {
		return model.Category{}, model.NotFound("category", id)
	}

	kind := c.Kind
	if newParent != 0 {
		parent, ok := f.Get(newParent)
		if !ok {
			return model.Category{}, model.NotFound("category", newParent)
		}
		if f.IsAncestor(id, newParent) {
			return model.Category{}, refErr(id, model.ErrCycle)
		}
		kind = parent.Kind
	}
	if c.ParentID == newParent {
		return c, nil
	}

	for _, sib := range f.Children(newParent) {
		if sib.Name == c.Name {
			return model.Category{}, &model.ReferenceError{Entity: "category", Ref: fmt.Sprintf("%q", c.Name), Err: model.ErrConflict}
		}
	}

	c.ParentID = newParent
	c.Kind = kind
	batch := []model.Category{c}
	for _, did := range f.Descendants(id)[1:] {
		d, _ := f.Get(did)
		if d.Kind != kind {
			d.Kind = kind
			batch = append(batch, d)
		}
	}
	if err := m.store.UpdateCategories(ctx, batch); err != nil {
		return model.Category{}, fmt.Errorf("moving category %d: %w", id, err)
	}
	return c, nil
}

// Update changes the name, description and color of a category. An empty
// name keeps the current one.
func (m *Manager) Update(ctx context.Context, id int64, name, description, color string) (model.Category, error) {
	f, err := m.Forest(ctx)
	if err != nil {
		return model.Category{}, err
	}
	c, ok := f.Get(id)
	if !ok {
		return model.Category{}, model.NotFound("category", id)
	}
	if strings.TrimSpace(name) != "" {
		if c.Name, err = validName(name); err != nil {
			return model.Category{}, err
		}
		for _, sib := range f.Children(c.ParentID) {
			if sib.ID != id && sib.Name == c.Name {
				return model.Category{}, &model.ReferenceError{Entity: "category", Ref: fmt.Sprintf("%q", c.Name), Err: model.ErrConflict}
			}
		}
	}
	c.Description = description
	c.Color = color
	if err := m.store.UpdateCategory(ctx, c); err != nil {
		return model.Category{}, fmt.Errorf("updating category %d: %w", id, err)
	}
	return c, nil
}

// Delete removes a leaf category nothing refers to. It never cascades:
// children give ErrHasChildren, transactions, rules or budgets give
// ErrInUse.
func (m *Manager) Delete(ctx context.Context, id int64) error {
	f, err := m.Forest(ctx)
	if err != nil {
		return err
	}
	if _, ok := f.Get(id); !ok {
		return model.NotFound("category", id)
	}
	if n := len(f.Children(id)); n > 0 {
		return refErr(id, fmt.Errorf("%w (%d)", model.ErrHasChildren, n))
	}

	refs, err := m.store.CategoryRefs(ctx, id)
	if err != nil {
		return fmt.Errorf("counting references to category %d: %w", id, err)
	}
	if refs.Total() > 0 {
		return refErr(id, fmt.Errorf("%w by %d transactions, %d rules, %d budgets",
			model.ErrInUse, refs.Transactions, refs.Rules, refs.Budgets))
	}

	if err := m.store.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("deleting category %d: %w", id, err)
	}
	return nil
}

// List returns the whole forest in the requested order.
func (m *Manager) List(ctx context.Context, order Order) ([]Node, error) {
	f, err := m.Forest(ctx)
	if err != nil {
		return nil, err
	}
	return f.Walk(order), nil
}

// Get returns the category with id.
func (m *Manager) Get(ctx context.Context, id int64) (model.Category, error) {
	return m.store.GetCategory(ctx, id)
}

// Children returns the direct children of id in name order; 0 gives the
// roots.
func (m *Manager) Children(ctx context.Context, id int64) ([]model.Category, error) {
	f, err := m.Forest(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := f.Get(id); id != 0 && !ok {
		return nil, model.NotFound("category", id)
	}
	return f.Children(id), nil
}

// Path returns the "Parent > Child" path of id.
func (m *Manager) Path(ctx context.Context, id int64) (string, error) {
	f, err := m.Forest(ctx)
	if err != nil {
		return "", err
	}
	if _, ok := f.Get(id); !ok {
		return "", model.NotFound("category", id)
	}
	return f.Path(id), nil
}

// Resolve finds a category from a user reference: a numeric id, a path
// such as "Logement > Charges", or a bare name that is unique in the
// forest. Names match exactly first, then case-insensitively.
func (m *Manager) Resolve(ctx context.Context, ref string) (model.Category, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.Category{}, &model.ReferenceError{Entity: "category", Err: fmt.Errorf("%w: empty reference", model.ErrInvalid)}
	}

	if id, err := strconv.ParseInt(strings.TrimPrefix(ref, "#"), 10, 64); err == nil {
		return m.store.GetCategory(ctx, id)
	}

	f, err := m.Forest(ctx)
	if err != nil {
		return model.Category{}, err
	}

	sep := strings.TrimSpace(PathSeparator)
	if strings.Contains(ref, sep) {
		return resolvePath(f, ref, strings.Split(ref, sep))
	}

	for _, fold := range []bool{false, true} {
		var found []model.Category
		for _, n := range f.Walk(DepthFirst) {
			if nameEqual(n.Name, ref, fold) {
				found = append(found, n.Category)
			}
		}
		switch len(found) {
		case 0:
			continue
		case 1:
			return found[0], nil
		default:
			paths := make([]string, len(found))
			for i, c := range found {
				paths[i] = f.Path(c.ID)
			}
			return model.Category{}, &model.ReferenceError{Entity: "category", Ref: fmt.Sprintf("%q", ref),
				Err: fmt.Errorf("%w: matches %s", model.ErrAmbiguous, strings.Join(paths, ", "))}
		}
	}
	return model.Category{}, &model.ReferenceError{Entity: "category", Ref: fmt.Sprintf("%q", ref), Err: model.ErrNotFound}
}

func nameEqual(a, b string, fold bool) bool {
	if fold {
		return strings.EqualFold(a, b)
	}
	return a == b
}

func resolvePath(f *Forest, ref string, parts []string) (model.Category, error) {
	var (
		parent int64
		cur    model.Category
	)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		var next *model.Category
		for _, fold := range []bool{false, true} {
			for _, c := range f.Children(parent) {
				if nameEqual(c.Name, part, fold) {
					c := c
					next = &c
					break
				}
			}
			if next != nil {
				break
			}
		}
		if next == nil {
			return model.Category{}, &model.ReferenceError{Entity: "category", Ref: fmt.Sprintf("%q", ref), Err: model.ErrNotFound}
		}
		cur, parent = *next, next.ID
	}
	return cur, nil
}

// Seed installs DefaultCatalog when the store holds no category at all and
// returns how many categories it created. A non-empty store is left
// untouched, so Seed is safe to call on every start.
func (m *Manager) Seed(ctx context.Context) (int, error) {
	f, err := m.Forest(ctx)
	if err != nil {
		return 0, err
	}
	if f.Len() > 0 {
		return 0, nil
	}

	n := 0
	for _, g := range DefaultCatalog() {
		root, err := m.store.CreateCategory(ctx, model.Category{Name: g.Name, Kind: g.Kind})
		if err != nil {
			return n, fmt.Errorf("seeding category %q: %w", g.Name, err)
		}
		n++
		for _, child := range g.Children {
			if _, err := m.store.CreateCategory(ctx, model.Category{Name: child, ParentID: root.ID, Kind: g.Kind}); err != nil {
				return n, fmt.Errorf("seeding category %q: %w", g.Name+PathSeparator+child, err)
			}
			n++
		}
	}
	return n, nil
}
