package reset

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/sharpedavid/idlinkreset/internal/keycloak"
)

// Directory is the identity-directory surface the sweeps operate on.
type Directory interface {
	CountUsers(ctx context.Context, realm string) (int, error)
	ListUsers(ctx context.Context, realm string, first int, max int) ([]keycloak.User, error)
	DeleteUser(ctx context.Context, realm string, userID string) error
	FederatedIdentities(ctx context.Context, realm string, userID string) ([]keycloak.FederatedIdentity, error)
	RemoveFederatedIdentity(ctx context.Context, realm string, userID string, provider string) error
}

type Config struct {
	IDPRealm         string
	ApplicationRealm string
	UserMax          int
	DryRun           bool
}

// CeilingError aborts a run whose target realm holds more users than the
// configured ceiling allows.
type CeilingError struct {
	Realm   string
	Count   int
	Ceiling int
}

func (e *CeilingError) Error() string {
	return fmt.Sprintf("realm %s has %d users, but at most %d can be processed", e.Realm, e.Count, e.Ceiling)
}

type LinkRemoval struct {
	Username string
	Provider string
}

// Outcome collects what a run deleted, in processing order. Items whose
// delete or remove call failed are not included.
type Outcome struct {
	DeletedUsers []string
	RemovedLinks []LinkRemoval
}

type Engine struct {
	dir    Directory
	cfg    Config
	logger *slog.Logger
}

func New(dir Directory, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{dir: dir, cfg: cfg, logger: logger}
}

// Run purges all users in the IdP realm, then removes federation links to
// the IdP realm from users in the application realm. Each realm is checked
// against the ceiling before it is listed. Per-item failures are logged and
// skipped; a ceiling violation or a count/list failure aborts the run.
func (e *Engine) Run(ctx context.Context) (Outcome, error) {
	idpUsers, err := e.boundedUsers(ctx, e.cfg.IDPRealm)
	if err != nil {
		return Outcome{}, err
	}
	deleted := e.purgeUsers(ctx, idpUsers)
	e.logger.Info("user purge complete", "realm", e.cfg.IDPRealm, "deleted", len(deleted), "dry_run", e.cfg.DryRun)

	appUsers, err := e.boundedUsers(ctx, e.cfg.ApplicationRealm)
	if err != nil {
		return Outcome{}, err
	}
	removed := e.removeOrphanedLinks(ctx, appUsers)
	e.logger.Info("link cleanup complete", "realm", e.cfg.ApplicationRealm, "removed", len(removed), "dry_run", e.cfg.DryRun)

	return Outcome{DeletedUsers: deleted, RemovedLinks: removed}, nil
}

// boundedUsers checks the realm against the ceiling before any listing is
// attempted, then retrieves a single page of at most UserMax users.
func (e *Engine) boundedUsers(ctx context.Context, realm string) ([]keycloak.User, error) {
	count, err := e.dir.CountUsers(ctx, realm)
	if err != nil {
		return nil, fmt.Errorf("count users in realm %s: %w", realm, err)
	}
	if count > e.cfg.UserMax {
		return nil, &CeilingError{Realm: realm, Count: count, Ceiling: e.cfg.UserMax}
	}
	users, err := e.dir.ListUsers(ctx, realm, 0, e.cfg.UserMax)
	if err != nil {
		return nil, fmt.Errorf("list users in realm %s: %w", realm, err)
	}
	return users, nil
}

func (e *Engine) purgeUsers(ctx context.Context, users []keycloak.User) []string {
	deleted := make([]string, 0, len(users))
	for _, user := range users {
		if !e.cfg.DryRun {
			if err := e.dir.DeleteUser(ctx, e.cfg.IDPRealm, user.ID); err != nil {
				e.logger.Warn("user delete failed", "realm", e.cfg.IDPRealm, "username", user.Username, "error", err)
				continue
			}
		}
		e.logger.Debug("deleted user", "realm", e.cfg.IDPRealm, "username", user.Username)
		deleted = append(deleted, user.Username)
	}
	return deleted
}

func (e *Engine) removeOrphanedLinks(ctx context.Context, users []keycloak.User) []LinkRemoval {
	removed := make([]LinkRemoval, 0)
	for _, user := range users {
		links, err := e.dir.FederatedIdentities(ctx, e.cfg.ApplicationRealm, user.ID)
		if err != nil {
			e.logger.Warn("federated identity list failed", "realm", e.cfg.ApplicationRealm, "username", user.Username, "error", err)
			continue
		}
		for _, link := range links {
			if link.IdentityProvider != e.cfg.IDPRealm {
				continue
			}
			if !e.cfg.DryRun {
				if err := e.dir.RemoveFederatedIdentity(ctx, e.cfg.ApplicationRealm, user.ID, link.IdentityProvider); err != nil {
					e.logger.Warn("federated identity remove failed", "realm", e.cfg.ApplicationRealm, "username", user.Username, "provider", link.IdentityProvider, "error", err)
					continue
				}
			}
			e.logger.Debug("removed federated identity", "realm", e.cfg.ApplicationRealm, "username", user.Username, "provider", link.IdentityProvider)
			removed = append(removed, LinkRemoval{Username: user.Username, Provider: link.IdentityProvider})
		}
	}
	return removed
}
