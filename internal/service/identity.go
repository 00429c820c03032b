package service

import (
	"strconv"
	"strings"

	"github.com/manishmaharjan/reservation-system/internal/model"
)

// parseID accepts only positive base-10 integers.
func parseID(raw, msg string) (uint64, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || n == 0 {
		return 0, fail(InvalidIdentifier, msg)
	}
	return n, nil
}

// Authorize checks that rawOwnerID is a valid user id and names the caller.
// It returns the parsed owner id.
func Authorize(caller model.User, rawOwnerID string) (uint64, error) {
	owner, err := parseID(rawOwnerID, MsgInvalidUserID)
	if err != nil {
		return 0, err
	}
	if caller.ID != owner {
		return 0, fail(IdentityMismatch, MsgKeyMismatch)
	}
	return owner, nil
}
