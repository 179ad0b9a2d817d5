// Package app owns the lifetime of one running teamload session.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"teamload/internal/alerts"
	"teamload/internal/config"
	"teamload/internal/db"
	"teamload/internal/domain"
	"teamload/internal/engine"
	"teamload/internal/migrate"
	"teamload/internal/repo"
	"teamload/internal/view"
)

// Catalog is an immutable snapshot of the skill list.
type Catalog struct {
	skills []domain.Skill
	byID   map[string]domain.Skill
}

func NewCatalog(skills []domain.Skill) *Catalog {
	c := &Catalog{skills: append([]domain.Skill(nil), skills...), byID: make(map[string]domain.Skill, len(skills))}
	for _, s := range skills {
		c.byID[s.ID] = s
	}
	return c
}

// Skills returns a copy of the catalog in name order.
func (c *Catalog) Skills() []domain.Skill {
	return append([]domain.Skill(nil), c.skills...)
}

func (c *Catalog) Lookup(id string) (domain.Skill, bool) {
	s, ok := c.byID[id]
	return s, ok
}

// Resolve finds a skill by id or, failing that, by case-insensitive name.
func (c *Catalog) Resolve(ref string) (domain.Skill, bool) {
	if s, ok := c.byID[ref]; ok {
		return s, true
	}
	for _, s := range c.skills {
		if strings.EqualFold(s.Name, ref) {
			return s, true
		}
	}
	return domain.Skill{}, false
}

// Name returns the skill name or "" for an unknown id.
func (c *Catalog) Name(id string) string {
	return c.byID[id].Name
}

// Session bundles the store, engine, views, alert counter and skill catalog of
// one workspace.
type Session struct {
	DB     *sql.DB
	Repo   repo.Repo
	Engine engine.Engine
	Views  view.Builder
	Alerts *alerts.Counter
	Config *config.Config
	Log    logrus.FieldLogger

	catalog atomic.Pointer[Catalog]
}

// Open opens and migrates the workspace database and loads the skill catalog.
// The alert counter is not started; call Start.
func Open(ctx context.Context, workspace string, cfg *config.Config, log logrus.FieldLogger) (*Session, error) {
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrate.Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	s, err := New(ctx, conn, cfg, log)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// New builds a session over an already migrated database.
func New(ctx context.Context, conn *sql.DB, cfg *config.Config, log logrus.FieldLogger) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	r := repo.New(conn)
	counter := alerts.NewCounter(r, cfg.Alerts.RefreshInterval, log)
	eng := engine.New(r, cfg, log)
	eng.Alerts = counter
	s := &Session{
		DB:     conn,
		Repo:   r,
		Engine: eng,
		Views:  view.Builder{Store: r, Log: log},
		Alerts: counter,
		Config: cfg,
		Log:    log,
	}
	if err := s.RefreshSkills(ctx); err != nil {
		return nil, fmt.Errorf("load skills: %w", err)
	}
	return s, nil
}

// Start begins the periodic alert count refresh.
func (s *Session) Start(ctx context.Context) {
	s.Alerts.Start(ctx)
}

// Close stops background work and closes the database.
func (s *Session) Close() error {
	s.Alerts.Stop()
	return s.DB.Close()
}

// Skills returns the current skill catalog snapshot.
func (s *Session) Skills() *Catalog {
	return s.catalog.Load()
}

// RefreshSkills reloads the catalog and swaps it in whole.
func (s *Session) RefreshSkills(ctx context.Context) error {
	skills, err := s.Repo.ListSkills(ctx)
	if err != nil {
		return err
	}
	s.catalog.Store(NewCatalog(skills))
	return nil
}

// CreateSkill adds a skill and refreshes the catalog.
func (s *Session) CreateSkill(ctx context.Context, name string) (domain.Skill, error) {
	skill, err := s.Engine.CreateSkill(ctx, name)
	if err != nil {
		return skill, err
	}
	if err := s.RefreshSkills(ctx); err != nil {
		return skill, err
	}
	return skill, nil
}

// Dashboard builds the dashboard with the cached unread alert count.
func (s *Session) Dashboard(ctx context.Context) (view.Dashboard, error) {
	return s.Views.Dashboard(ctx, s.Alerts.Count())
}
