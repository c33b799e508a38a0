package server

import (
	"errors"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

var errInvalidSnowflakeID = errors.New("invalid_snowflake_id")

// parseRecruiterParam reads the :id path segment as a recruiter id.
func parseRecruiterParam(c *gin.Context) (int64, error) {
	parsed, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || parsed <= 0 {
		return 0, newValidationError("recruiter_id", "invalid_recruiter", "recruiter id must be a positive integer")
	}
	return parsed, nil
}

func parseSnowflakeID(value string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return 0, errInvalidSnowflakeID
	}
	return parsed, nil
}
