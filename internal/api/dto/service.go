package dto

import (
	"github.com/streambill/streambill/internal/domain/account"
	"github.com/streambill/streambill/internal/domain/importeduser"
	"github.com/streambill/streambill/internal/domain/lifecyclelog"
)

// ServiceActionRequest carries the audit fields for a lifecycle mutation.
type ServiceActionRequest struct {
	Reason string `json:"reason" binding:"required"`
	Actor  string `json:"actor"`
}

// ActorOrDefault returns the triggering actor, defaulting to "admin" for
// manual API calls without one.
func (r *ServiceActionRequest) ActorOrDefault() string {
	if r.Actor == "" {
		return "admin"
	}
	return r.Actor
}

// ExtendServiceRequest targets a remote package for a manual extension.
type ExtendServiceRequest struct {
	RemotePackageID int    `json:"remote_package_id" binding:"required"`
	TermMonths      int    `json:"term_months" binding:"omitempty,min=1"`
	Reason          string `json:"reason" binding:"required"`
	Actor           string `json:"actor"`
}

func (r *ExtendServiceRequest) ActorOrDefault() string {
	if r.Actor == "" {
		return "admin"
	}
	return r.Actor
}

// ListServicesResponse wraps a service listing.
type ListServicesResponse struct {
	Items []*account.Account `json:"items"`
	Total int                `json:"total"`
}

// ServiceHistoryResponse wraps a lifecycle log listing.
type ServiceHistoryResponse struct {
	Items []*lifecyclelog.Entry `json:"items"`
}

// ListImportedUsersResponse wraps an imported user listing.
type ListImportedUsersResponse struct {
	Items []*importeduser.ImportedUser `json:"items"`
	Total int                          `json:"total"`
}
