// Package workflow mendefinisikan mesin status pengajuan surat.
package workflow

import (
	"errors"
	"fmt"

	"github.com/kelurahan-digital/sisurat/internal/model"
)

var (
	// ErrInvalidTarget dikembalikan jika peran tidak pernah boleh menetapkan status tujuan.
	ErrInvalidTarget = errors.New("target status not permitted for role")
	// ErrInvalidTransition dikembalikan jika status saat ini tidak mengizinkan transisi.
	ErrInvalidTransition = errors.New("transition not allowed from current status")
)

// Action adalah jenis keputusan pemeriksa.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionIssue   Action = "issue"
)

// Transition adalah satu baris tabel transisi.
type Transition struct {
	From   model.SuratStatus
	Role   model.Role
	Action Action
	To     model.SuratStatus
}

var table = []Transition{
	{model.StatusSubmitted, model.RoleRT, ActionApprove, model.StatusVerifiedByRT},
	{model.StatusSubmitted, model.RoleRT, ActionReject, model.StatusRejectedByRT},

	{model.StatusVerifiedByRT, model.RoleStaff, ActionApprove, model.StatusVerifiedByStaff},
	{model.StatusVerifiedByRT, model.RoleStaff, ActionReject, model.StatusRejectedByStaff},

	{model.StatusVerifiedByStaff, model.RoleLurah, ActionApprove, model.StatusVerifiedByLurah},
	{model.StatusVerifiedByStaff, model.RoleLurah, ActionReject, model.StatusRejectedByLurah},
	{model.StatusVerifiedByStaff, model.RoleLurah, ActionIssue, model.StatusIssued},
	{model.StatusVerifiedByLurah, model.RoleLurah, ActionIssue, model.StatusIssued},
}

// Transitions mengembalikan salinan tabel transisi.
func Transitions() []Transition {
	out := make([]Transition, len(table))
	copy(out, table)
	return out
}

// Resolve mencari transisi dari status from ke status to oleh peran role.
func Resolve(from model.SuratStatus, role model.Role, to model.SuratStatus) (Transition, error) {
	targetKnown := false
	for _, t := range table {
		if t.Role != role || t.To != to {
			continue
		}
		targetKnown = true
		if t.From == from {
			return t, nil
		}
	}

	if !targetKnown {
		return Transition{}, fmt.Errorf("%w: %s cannot set %s", ErrInvalidTarget, role, to)
	}
	return Transition{}, fmt.Errorf("%w: %s -> %s by %s", ErrInvalidTransition, from, to, role)
}

// Next mengembalikan status hasil tindakan action oleh role pada status from.
func Next(from model.SuratStatus, role model.Role, action Action) (model.SuratStatus, error) {
	for _, t := range table {
		if t.From == from && t.Role == role && t.Action == action {
			return t.To, nil
		}
	}
	return "", fmt.Errorf("%w: %s %s on %s", ErrInvalidTransition, role, action, from)
}

// PendingFor mengembalikan status yang menunggu tindakan role.
func PendingFor(role model.Role) []model.SuratStatus {
	seen := make(map[model.SuratStatus]struct{})
	var res []model.SuratStatus
	for _, t := range table {
		if t.Role != role {
			continue
		}
		if _, ok := seen[t.From]; ok {
			continue
		}
		seen[t.From] = struct{}{}
		res = append(res, t.From)
	}
	return res
}

// TargetsFor mengembalikan status tujuan yang boleh ditetapkan role.
func TargetsFor(role model.Role) []model.SuratStatus {
	seen := make(map[model.SuratStatus]struct{})
	var res []model.SuratStatus
	for _, t := range table {
		if t.Role != role {
			continue
		}
		if _, ok := seen[t.To]; ok {
			continue
		}
		seen[t.To] = struct{}{}
		res = append(res, t.To)
	}
	return res
}

// CanRate melaporkan apakah surat dengan status s sudah boleh dinilai.
func CanRate(s model.SuratStatus) bool {
	return s == model.StatusVerifiedByLurah || s == model.StatusIssued
}
