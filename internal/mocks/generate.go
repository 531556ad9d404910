// Package mocks provides mock implementations for testing the dispatch engine.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the core ports. The mocks are generated with go:generate directives and
// provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	sender := mocks.NewMockMessageSender(ctrl)
//	sender.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
package mocks

// Generate mock for RecipientDirectory interface from internal/core package.
// This creates MockRecipientDirectory with: Resolve
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=recipient_directory_mock.go github.com/modubang/notify-api/internal/core RecipientDirectory

// Generate mock for MessageSender interface from internal/core package.
// This creates MockMessageSender with: Send
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=message_sender_mock.go github.com/modubang/notify-api/internal/core MessageSender
