// Package realtime delivers user-addressed events to connected websocket clients.
// Publishers write to Redis; every API instance runs a Hub subscribed to the
// user channels and forwards frames to its local sockets.
package realtime

import (
	"encoding/json"
	"strings"
)

const redisPrefix = "rt:"

// Frame is what a websocket client receives.
type Frame struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// UserChannel returns the channel key of a user.
func UserChannel(userID string) string {
	return "user:" + userID
}

func redisChannel(channelKey string) string {
	return redisPrefix + channelKey
}

// userFromRedisChannel extracts the user id from "rt:user:<id>".
func userFromRedisChannel(ch string) (string, bool) {
	return strings.CutPrefix(ch, redisPrefix+"user:")
}

func encodeFrame(event string, payload any) ([]byte, error) {
	return json.Marshal(Frame{Event: event, Payload: payload})
}
