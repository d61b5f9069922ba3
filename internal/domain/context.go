package domain

import "context"

type subjectKey struct{}

// WithSubjectName stores the authenticated subject name in the context.
func WithSubjectName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, subjectKey{}, name)
}

// SubjectNameFromContext extracts the authenticated subject name from the context.
func SubjectNameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(subjectKey{}).(string)
	return name, ok
}
