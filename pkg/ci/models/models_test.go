package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromGitHub(t *testing.T) {
	cases := []struct {
		status, conclusion string
		want               Status
	}{
		{"queued", "", StatusQueued},
		{"in_progress", "", StatusRunning},
		{"completed", "success", StatusSuccess},
		{"completed", "failure", StatusFailure},
		{"completed", "cancelled", StatusCancelled},
		{"completed", "skipped", StatusSkipped},
		{"completed", "timed_out", StatusTimedOut},
		{"completed", "something_new", StatusUnknown},
		{"bogus", "", StatusUnknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FromGitHub(c.status, c.conclusion), "status=%s conclusion=%s", c.status, c.conclusion)
	}
}

func TestFromGitLab(t *testing.T) {
	assert.Equal(t, StatusSuccess, FromGitLab("success"))
	assert.Equal(t, StatusFailure, FromGitLab("failed"))
	assert.Equal(t, StatusUnknown, FromGitLab("bogus"))
}

func TestFromJenkins(t *testing.T) {
	assert.Equal(t, StatusSuccess, FromJenkins("SUCCESS"))
	assert.Equal(t, StatusFailure, FromJenkins("UNSTABLE"))
	assert.Equal(t, StatusRunning, FromJenkins(""))
	assert.Equal(t, StatusUnknown, FromJenkins("bogus"))
}
