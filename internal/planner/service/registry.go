package service

import (
	"errors"
	"sort"
	"sync"

	"floorplan/internal/planner/document"

	"github.com/google/uuid"
)

// ============================================================
// Plan Registry
// ============================================================

var ErrPlanNotFound = errors.New("plan not found")

type entry struct {
	mu   sync.Mutex
	name string
	doc  *document.Document
}

// Registry держит открытые планы в памяти. Документ не потокобезопасен,
// поэтому каждый план защищен своим мьютексом, а правка выполняется целиком под ним.
type Registry struct {
	mu         sync.Mutex
	plans      map[string]*entry
	snapRadius float64
}

func NewRegistry(snapRadius float64) *Registry {
	return &Registry{
		plans:      make(map[string]*entry),
		snapRadius: snapRadius,
	}
}

// Create открывает пустой план и возвращает его ID.
func (r *Registry) Create(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	r.plans[id] = &entry{name: name, doc: document.New(r.snapRadius)}
	return id
}

// Put регистрирует документ под заданным ID (например, загруженный из хранилища).
func (r *Registry) Put(id, name string, doc *document.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.plans[id] = &entry{name: name, doc: doc}
}

func (r *Registry) NewDocument() *document.Document {
	return document.New(r.snapRadius)
}

// With выполняет fn над документом под его мьютексом.
func (r *Registry) With(id string, fn func(name string, doc *document.Document) error) error {
	r.mu.Lock()
	e, ok := r.plans[id]
	r.mu.Unlock()
	if !ok {
		return ErrPlanNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.name, e.doc)
}

func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.plans[id]; !ok {
		return false
	}
	delete(r.plans, id)
	return true
}

func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.plans))
	for id := range r.plans {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
