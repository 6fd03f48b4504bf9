package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionStartKey returns the cache key holding the wall-clock start of a
// timed session, scoped to one client session of one invitation.
func (r *CacheKeyStruct) SessionStartKey(invitationID int64, clientSession string) string {
	return fmt.Sprintf("invitation:%d:client:%s:session_start", invitationID, clientSession)
}

var CacheKey = NewCacheKeyStruct()
