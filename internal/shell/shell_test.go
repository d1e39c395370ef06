package shell

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/xjj0211/approval-frontend/internal/form"
	"github.com/xjj0211/approval-frontend/internal/listview"
	"github.com/xjj0211/approval-frontend/internal/model"
)

func TestShowRoleSwitch(t *testing.T) {
	cases := map[string]bool{
		"/":         true,
		"/search":   true,
		"/detail/1": true,
		"/create":   false,
		"/edit/1":   false,
		"/editor":   true,
	}
	for path, want := range cases {
		assert.Equal(t, want, ShowRoleSwitch(path), path)
	}
}

func TestContext_Gates(t *testing.T) {
	pending := &model.ApprovalRecord{Status: model.StatusPending}
	applicant := NewContext(model.RoleApplicant, "/")
	approver := NewContext(model.RoleApprover, "/")

	assert.True(t, applicant.CanCreate())
	assert.True(t, applicant.CanEdit(pending))
	assert.False(t, applicant.CanDecide(pending))
	assert.False(t, approver.CanCreate())
	assert.True(t, approver.CanDecide(pending))
	assert.True(t, approver.IsApprover())
}

func TestStore_GetAndCleanup(t *testing.T) {
	created := 0
	s := NewStore(time.Hour, func() *listview.View {
		created++
		return listview.New(nil, 10, nil)
	})
	defer s.Close()

	now := time.Date(2025, 11, 18, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	a := s.Get("a")
	assert.Same(t, a, s.Get("a"))
	s.Get("b")
	assert.Equal(t, 2, created)

	now = now.Add(50 * time.Minute)
	s.Get("a")
	now = now.Add(20 * time.Minute)
	assert.Equal(t, 1, s.Cleanup())
	assert.Equal(t, 1, s.Len())
	assert.Same(t, a, s.Get("a"))
}

func TestWorkspace_DiscardForm(t *testing.T) {
	ws := &Workspace{}
	assert.Nil(t, ws.Form())
	sess := form.NewSession(nil, "", form.Options{})
	ws.SetForm(sess)
	assert.Same(t, sess, ws.Form())
	ws.DiscardForm()
	assert.Nil(t, ws.Form())
}
