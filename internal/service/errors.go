package service

import "errors"

var (
	// ErrNotFound covers a missing listing, conversation or user.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateConversation means the buyer already has a request for
	// this listing, resolved or not.
	ErrDuplicateConversation = errors.New("conversation already exists for this listing")
	// ErrUnauthorized means the acting user is not the conversation's seller.
	ErrUnauthorized = errors.New("unauthorized to update this conversation")
	// ErrForbidden means the acting user is not a participant.
	ErrForbidden = errors.New("forbidden")
	// ErrNotApproved means a chat message was sent before the seller
	// approved the conversation.
	ErrNotApproved = errors.New("conversation must be approved before sending messages")
	// ErrInvalidTransition rejects any status change other than
	// pending -> approved or pending -> rejected.
	ErrInvalidTransition = errors.New("invalid conversation status transition")
	// ErrAlreadySold means checkout was attempted on a sold listing.
	ErrAlreadySold = errors.New("listing already sold")
	// ErrOnboardingIncomplete means the seller's payment account cannot
	// receive funds yet.
	ErrOnboardingIncomplete = errors.New("seller onboarding incomplete")
)
