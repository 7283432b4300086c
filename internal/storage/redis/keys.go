package redis

import (
	"fmt"

	"github.com/mcoot/ratinggame/internal/model"
)

// Key prefix for all rating game data
const keyPrefix = "rategame"

// userKey returns the Redis key for a User
func userKey(id model.UserID) string {
	return fmt.Sprintf("%s:user:%s", keyPrefix, id)
}

// usernameIndexKey returns the Redis key for the username -> user_id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, username)
}

// imageKey returns the Redis key for an Image
func imageKey(id model.ImageID) string {
	return fmt.Sprintf("%s:image:%s", keyPrefix, id)
}

// imagesIndexKey returns the Redis key for the ZSET of image ids scored by creation time
func imagesIndexKey() string {
	return fmt.Sprintf("%s:idx:images", keyPrefix)
}

// ratingsKey returns the Redis key for the HASH of user_id -> rating for an image
func ratingsKey(imageID model.ImageID) string {
	return fmt.Sprintf("%s:ratings:%s", keyPrefix, imageID)
}

// ratedByKey returns the Redis key for the SET of image ids a user has rated
func ratedByKey(userID model.UserID) string {
	return fmt.Sprintf("%s:idx:rated_by:%s", keyPrefix, userID)
}

// sessionKey returns the Redis key for a Session
func sessionKey(id string) string {
	return fmt.Sprintf("%s:session:%s", keyPrefix, id)
}

// auditKey returns the Redis key for the audit LIST, newest entry at the head
func auditKey() string {
	return fmt.Sprintf("%s:audit", keyPrefix)
}
