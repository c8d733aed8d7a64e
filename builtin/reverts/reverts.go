// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
)

type ErrRevert struct {
	message string
}

func New(message string) *ErrRevert {
	return &ErrRevert{
		message: message,
	}
}

func (e *ErrRevert) Error() string {
	return e.message
}

// IsRevertErr reports whether err is a business rule rejection rather than
// an infrastructure failure.
func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var ve *ErrRevert
	return errors.As(e, &ve)
}

// Rejections raised by the oracle. Match them with errors.Is.
var (
	ErrInsufficientBalance = New("insufficient balance")
	ErrNotStaked           = New("not staked")
	ErrLockNotElapsed      = New("lock not elapsed")
	ErrNotSelectedMiner    = New("not a selected miner")
	ErrWrongRequestID      = New("wrong request id")
	ErrDuplicateSubmission = New("duplicate submission")
	ErrDuplicateDispute    = New("duplicate dispute")
	ErrAlreadyVoted        = New("already voted")
	ErrAlreadyTallied      = New("already tallied")
	ErrUnknownID           = New("unknown id")

	ErrInvalidAmount      = New("invalid amount")
	ErrIndexOutOfRange    = New("index out of range")
	ErrUnderDispute       = New("under dispute")
	ErrFeeAlreadyUnlocked = New("fee already unlocked")
	ErrInvalidQuery       = New("invalid query")
)
