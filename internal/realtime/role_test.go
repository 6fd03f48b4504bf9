package realtime

import (
	"errors"
	"testing"

	"github.com/hiredeck/hiredeck-backend/internal/model"
)

func TestResolveRole(t *testing.T) {
	assigned := int64(5)
	other := int64(9)

	tests := []struct {
		name       string
		reviewerID *int64
		inv        *model.Invitation
		want       Role
		wantErr    error
	}{
		{
			name: "anonymous is candidate",
			inv:  &model.Invitation{AssignedReviewerID: &assigned},
			want: RoleCandidate,
		},
		{
			name:       "assigned reviewer is interviewer",
			reviewerID: &assigned,
			inv:        &model.Invitation{AssignedReviewerID: &assigned},
			want:       RoleInterviewer,
		},
		{
			name:       "other reviewer refused",
			reviewerID: &other,
			inv:        &model.Invitation{AssignedReviewerID: &assigned},
			wantErr:    ErrNotAssigned,
		},
		{
			name:       "reviewer on unassigned invitation refused",
			reviewerID: &other,
			inv:        &model.Invitation{},
			wantErr:    ErrNotAssigned,
		},
		{
			name: "anonymous on unassigned invitation is candidate",
			inv:  &model.Invitation{},
			want: RoleCandidate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, err := ResolveRole(tt.reviewerID, tt.inv)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ResolveRole() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveRole() error = %v", err)
			}
			if role != tt.want {
				t.Errorf("ResolveRole() = %s, want %s", role, tt.want)
			}
		})
	}
}
