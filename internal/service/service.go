package service

import (
	"github.com/cardiopredict/web/internal/domain"
)

// AuditRepository is re-exported from domain for convenience
type AuditRepository = domain.AuditRepository
