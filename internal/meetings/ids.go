package meetings

import (
	"strconv"
	"time"

	"meeting-platform/pkg/utils"
)

const meetingIDSuffixLen = 6

// NewMeetingID returns "{epoch-ms}-{random base36}".
func NewMeetingID(now time.Time) (string, error) {
	suffix, err := utils.RandomBase36(meetingIDSuffixLen)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + suffix, nil
}

// MeetingURL joins the base with /meeting/{id}. The first non-empty of
// publicBase and origin wins; otherwise the local development origin.
func MeetingURL(publicBase, origin, id string) string {
	base := publicBase
	if base == "" {
		base = origin
	}
	if base == "" {
		base = defaultBaseURL
	}
	return base + "/meeting/" + id
}

const defaultBaseURL = "http://localhost:3000"
