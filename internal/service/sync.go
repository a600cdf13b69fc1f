package service

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sourcegraph/conc/pool"

	"github.com/streambill/streambill/internal/domain/importeduser"
	"github.com/streambill/streambill/internal/panel"
	"github.com/streambill/streambill/internal/types"
)

// SyncReport summarises one sync run across all panel instances.
type SyncReport struct {
	Panels   int `json:"panels"`
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Deleted  int `json:"deleted"`
	Failures int `json:"failures"`
}

// SyncService reconciles the imported-user mirror against the panels. After a
// run the stored set for each reachable panel instance equals exactly what
// that panel reported; a second run against unchanged panels is a no-op.
type SyncService interface {
	SyncPanels(ctx context.Context) (*SyncReport, error)

	// ListImportedUsers exposes the mirror for the admin surface.
	ListImportedUsers(ctx context.Context, filter *types.ImportedUserFilter) ([]*importeduser.ImportedUser, error)
}

type syncService struct {
	ServiceParams
}

func NewSyncService(params ServiceParams) SyncService {
	return &syncService{ServiceParams: params}
}

func (s *syncService) ListImportedUsers(ctx context.Context, filter *types.ImportedUserFilter) ([]*importeduser.ImportedUser, error) {
	return s.ImportedUserRepo.List(ctx, filter)
}

func (s *syncService) SyncPanels(ctx context.Context) (*SyncReport, error) {
	report := &SyncReport{}
	var mu sync.Mutex

	// Panels are independent; sync them concurrently but bound the fan-out
	// so a fleet of slow panels does not pile up connections.
	p := pool.New().WithMaxGoroutines(4).WithContext(ctx)

	for i := range s.Config.Panels.XtreamUI {
		index := i
		if !s.Config.Panels.XtreamUI[index].Active {
			continue
		}
		p.Go(func(ctx context.Context) error {
			created, updated, deleted, err := s.syncXtreamUIPanel(ctx, index)
			mu.Lock()
			defer mu.Unlock()
			report.Panels++
			if err != nil {
				report.Failures++
				s.Logger.Errorw("panel sync failed",
					"panel_family", types.PanelFamilyXtreamUI, "panel_index", index, "error", err)
				return nil
			}
			report.Created += created
			report.Updated += updated
			report.Deleted += deleted
			return nil
		})
	}

	for i := range s.Config.Panels.XuiOne {
		index := i
		if !s.Config.Panels.XuiOne[index].Active {
			continue
		}
		p.Go(func(ctx context.Context) error {
			created, updated, deleted, err := s.syncXuiOnePanel(ctx, index)
			mu.Lock()
			defer mu.Unlock()
			report.Panels++
			if err != nil {
				report.Failures++
				s.Logger.Errorw("panel sync failed",
					"panel_family", types.PanelFamilyXuiOne, "panel_index", index, "error", err)
				return nil
			}
			report.Created += created
			report.Updated += updated
			report.Deleted += deleted
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return report, err
	}

	s.Logger.Infow("panel sync finished",
		"panels", report.Panels,
		"created", report.Created,
		"updated", report.Updated,
		"deleted", report.Deleted,
		"failures", report.Failures,
	)
	return report, nil
}

func (s *syncService) syncXtreamUIPanel(ctx context.Context, index int) (int, int, int, error) {
	client, panelCfg, _, err := s.Panels.XtreamUI(ctx, index)
	if err != nil {
		return 0, 0, 0, err
	}

	var remote []panel.RemoteAccount
	fetch := func() error {
		subscribers, err := client.ListSubscribers(ctx)
		if err != nil {
			return err
		}
		resellers, err := client.ListResellers(ctx)
		if err != nil {
			return err
		}
		remote = append(subscribers, resellers...)
		return nil
	}
	if err := backoff.Retry(fetch, listingBackoff(ctx)); err != nil {
		return 0, 0, 0, err
	}

	return s.reconcile(ctx, types.PanelFamilyXtreamUI, index, panelCfg.Name, remote)
}

func (s *syncService) syncXuiOnePanel(ctx context.Context, index int) (int, int, int, error) {
	client, panelCfg, _, err := s.Panels.XuiOne(ctx, index)
	if err != nil {
		return 0, 0, 0, err
	}

	var remote []panel.RemoteAccount
	fetch := func() error {
		lines, err := client.ListLines(ctx)
		if err != nil {
			return err
		}
		users, err := client.ListUsers(ctx)
		if err != nil {
			return err
		}
		remote = append(lines, users...)
		return nil
	}
	if err := backoff.Retry(fetch, listingBackoff(ctx)); err != nil {
		return 0, 0, 0, err
	}

	return s.reconcile(ctx, types.PanelFamilyXuiOne, index, panelCfg.Name, remote)
}

// listingBackoff retries transient listing failures a few times with capped
// exponential delays. Mutating panel calls never retry; listings are
// read-only and safe to.
func listingBackoff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 15 * time.Second
	return backoff.WithContext(backoff.WithMaxRetries(b, 3), ctx)
}

// reconcile makes the stored mirror for one panel instance equal the remote
// listing: unknown accounts are inserted, changed ones updated, and stored
// records the panel no longer lists are removed.
func (s *syncService) reconcile(ctx context.Context, family types.PanelFamily, index int, panelName string, remote []panel.RemoteAccount) (int, int, int, error) {
	stored, err := s.ImportedUserRepo.ListByPanel(ctx, family, index)
	if err != nil {
		return 0, 0, 0, err
	}

	storedByKey := make(map[string]*importeduser.ImportedUser, len(stored))
	for _, u := range stored {
		storedByKey[u.Key()] = u
	}

	now := s.now()
	var created, updated int
	seen := make(map[string]struct{}, len(remote))

	for i := range remote {
		incoming := s.toImportedUser(ctx, &remote[i], family, index, panelName, now)
		key := incoming.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		existing, ok := storedByKey[key]
		if !ok {
			if err := s.ImportedUserRepo.Create(ctx, incoming); err != nil {
				return created, updated, 0, err
			}
			created++
			continue
		}
		if existing.Changed(incoming) {
			incoming.ID = existing.ID
			incoming.BaseModel = existing.BaseModel
			if incoming.Password == "" {
				incoming.Password = existing.Password
			}
			if err := s.ImportedUserRepo.Update(ctx, incoming); err != nil {
				return created, updated, 0, err
			}
			updated++
		}
	}

	var deleted int
	for key, existing := range storedByKey {
		if _, stillThere := seen[key]; stillThere {
			continue
		}
		if err := s.ImportedUserRepo.Delete(ctx, existing.ID); err != nil {
			return created, updated, deleted, err
		}
		deleted++
	}

	return created, updated, deleted, nil
}

func (s *syncService) toImportedUser(ctx context.Context, acct *panel.RemoteAccount, family types.PanelFamily, index int, panelName string, now time.Time) *importeduser.ImportedUser {
	accountType := types.AccountTypeSubscriber
	if acct.IsReseller {
		accountType = types.AccountTypeReseller
	}
	return &importeduser.ImportedUser{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_IMPORTED_USER),
		PanelFamily:       family,
		PanelIndex:        index,
		PanelName:         panelName,
		RemoteUserID:      acct.RemoteUserID,
		Username:          acct.Username,
		Password:          acct.Password,
		AccountType:       accountType,
		ExpiryDate:        acct.ExpiryDate,
		RemoteStatus:      acct.Status,
		Credits:           acct.Credits,
		MaxConnections:    acct.MaxConnections,
		CreatedByReseller: acct.CreatedByReseller,
		LastSyncedAt:      now,
		BaseModel:         types.GetDefaultBaseModel(ctx),
	}
}
