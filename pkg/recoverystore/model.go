package recoverystore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/novavault/recovery-middleware/pkg/recovery"
)

// RequestDao is a data access object that maps directly to the
// 'recovery_requests' table in PostgreSQL.
type RequestDao struct {
	bun.BaseModel `bun:"table:recovery_requests,alias:rr"`

	ID           int64    `bun:"id,pk,autoincrement"`
	RequestID    string   `bun:"request_id,notnull,type:varchar(36)"`
	IdentityKey  string   `bun:"identity_key,unique,notnull,type:varchar(66)"`
	Identity     string   `bun:"identity,notnull,type:varchar(255)"`
	CurrentOwner string   `bun:"current_owner,notnull,type:varchar(42)"`
	NewOwner     string   `bun:"new_owner,notnull,type:varchar(42)"`
	Guardians    []string `bun:"guardians,notnull,type:jsonb"`
	Threshold    int      `bun:"threshold,notnull"`
	Approvals    []string `bun:"approvals,type:jsonb"`

	Status         string `bun:"status,notnull,type:varchar(16)"`
	ExecutionPhase string `bun:"execution_phase,type:varchar(32)"`

	CreatedAt          time.Time  `bun:"created_at,nullzero,default:current_timestamp"`
	ExecutionStartedAt *time.Time `bun:"execution_started_at"`
	CompletedAt        *time.Time `bun:"completed_at"`
	FailedAt           *time.Time `bun:"failed_at"`
	Error              string     `bun:"error,type:text"`

	Result *recovery.MigrationResult `bun:"result,type:jsonb"`
}

// toRequestDao converts a recovery.Request to RequestDao.
func toRequestDao(req *recovery.Request) *RequestDao {
	return &RequestDao{
		RequestID:          req.RequestID,
		IdentityKey:        req.IdentityKey,
		Identity:           req.Identity,
		CurrentOwner:       req.CurrentOwner,
		NewOwner:           req.NewOwner,
		Guardians:          req.Guardians,
		Threshold:          req.Threshold,
		Approvals:          req.Approvals,
		Status:             string(req.Status),
		ExecutionPhase:     string(req.ExecutionPhase),
		CreatedAt:          req.CreatedAt,
		ExecutionStartedAt: req.ExecutionStartedAt,
		CompletedAt:        req.CompletedAt,
		FailedAt:           req.FailedAt,
		Error:              req.Error,
		Result:             req.Result,
	}
}

// toRequest converts a RequestDao to recovery.Request.
func toRequest(dao *RequestDao) *recovery.Request {
	return &recovery.Request{
		RequestID:          dao.RequestID,
		IdentityKey:        dao.IdentityKey,
		Identity:           dao.Identity,
		CurrentOwner:       dao.CurrentOwner,
		NewOwner:           dao.NewOwner,
		Guardians:          dao.Guardians,
		Threshold:          dao.Threshold,
		Approvals:          dao.Approvals,
		Status:             recovery.Status(dao.Status),
		ExecutionPhase:     recovery.Phase(dao.ExecutionPhase),
		CreatedAt:          dao.CreatedAt,
		ExecutionStartedAt: dao.ExecutionStartedAt,
		CompletedAt:        dao.CompletedAt,
		FailedAt:           dao.FailedAt,
		Error:              dao.Error,
		Result:             dao.Result,
	}
}
