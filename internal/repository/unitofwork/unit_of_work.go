package unitofwork

import (
	"context"

	"member-portal-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	MembershipRepository() contract.MembershipRepository
	ReferralRepository() contract.ReferralRepository
	NotificationRepository() contract.NotificationRepository
	AuditRepository() contract.AuditRepository
}
