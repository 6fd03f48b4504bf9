package model

import "time"

// Candidate represents a person invited to take assessments.
// Created by staff; never deleted while invitations reference it.
type Candidate struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateCandidateRequest is the payload for registering a new candidate.
type CreateCandidateRequest struct {
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name" binding:"required,min=2,max=255"`
}
