package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentSessionKey returns the cache key for a student's login session
func (r *CacheKeyStruct) StudentSessionKey(studentID int) string {
	return fmt.Sprintf("login:%d", studentID)
}

// AttemptStartKey returns the cache key for an attempt's start timestamp
func (r *CacheKeyStruct) AttemptStartKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:start", attemptID)
}

// AttemptNavCountKey returns the cache key for an attempt's running
// violation counter
func (r *CacheKeyStruct) AttemptNavCountKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:navcount", attemptID)
}

// TestContentKey returns the cache key for a test's student-facing content
func (r *CacheKeyStruct) TestContentKey(testID string) string {
	return fmt.Sprintf("test:%s:content", testID)
}

// TestMonitorChannel returns the Redis PubSub channel name for a test's
// live proctoring feed
func (r *CacheKeyStruct) TestMonitorChannel(testID string) string {
	return fmt.Sprintf("test:%s:monitor", testID)
}

var CacheKey = NewCacheKeyStruct()
