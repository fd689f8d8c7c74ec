package member_test

import (
	"testing"

	"gymdesk/internal/domain/member"
)

// TestMember_Validate tests validation of Member.
func TestMember_Validate(t *testing.T) {
	tests := []struct {
		name    string
		member  member.Member
		wantErr bool
	}{
		{
			name:    "valid member",
			member:  member.Member{ID: "1", Name: "Jamie Ortega", Email: "jamie@example.com", Status: member.StatusActive},
			wantErr: false,
		},
		{
			name:    "empty name",
			member:  member.Member{ID: "2", Name: "", Email: "jamie@example.com", Status: member.StatusActive},
			wantErr: true,
		},
		{
			name:    "invalid email",
			member:  member.Member{ID: "3", Name: "Jamie", Email: "not-an-email", Status: member.StatusActive},
			wantErr: true,
		},
		{
			name:    "unknown status",
			member:  member.Member{ID: "4", Name: "Jamie", Email: "jamie@example.com", Status: "frozen"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.member.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Member.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestMember_CanRegister tests that only active members may register.
func TestMember_CanRegister(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{member.StatusActive, true},
		{member.StatusSuspended, false},
		{member.StatusArchived, false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			m := member.Member{ID: "1", Name: "Jamie", Email: "jamie@example.com", Status: tt.status}
			if got := m.CanRegister(); got != tt.want {
				t.Errorf("CanRegister() with status=%s = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

// TestMember_ArchiveRestore tests the archive lifecycle.
func TestMember_ArchiveRestore(t *testing.T) {
	m := member.Member{ID: "1", Name: "Jamie", Email: "jamie@example.com", Status: member.StatusActive}

	if err := m.Archive(); err != nil {
		t.Fatalf("archive failed: %v", err)
	}
	if err := m.Archive(); err != member.ErrAlreadyArchived {
		t.Errorf("expected ErrAlreadyArchived, got %v", err)
	}
	if err := m.Restore(); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if !m.IsActive() {
		t.Error("restored member should be active")
	}
}
