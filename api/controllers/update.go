package controllers

import (
	"context"
	"net/http"

	"github.com/posdesk/posd/api/responses"
	"github.com/posdesk/posd/internal/cachestore"
	"github.com/posdesk/posd/internal/lifecycle"
	pkgerrors "github.com/posdesk/posd/pkg/errors"
	"github.com/posdesk/posd/pkg/logger"
)

// UpdateManager is the cache lifecycle surface the update endpoints drive.
type UpdateManager interface {
	State() lifecycle.State
	Names() cachestore.Names
	SkipWaiting(ctx context.Context) error
}

// UpdateStatus reports the installed cache generation.
func UpdateStatus(mgr UpdateManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if mgr == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lifecycle manager unavailable"))
			return
		}
		names := mgr.Names()
		responses.WriteSuccess(w, map[string]any{
			"success": true,
			"state":   mgr.State().String(),
			"caches":  []string{names.Static, names.Runtime},
		})
	}
}

// UpdateApply promotes the installed cache generation immediately instead
// of waiting for a restart.
func UpdateApply(mgr UpdateManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if mgr == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lifecycle manager unavailable"))
			return
		}
		if err := mgr.SkipWaiting(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"success": true,
			"state":   mgr.State().String(),
		})
	}
}
