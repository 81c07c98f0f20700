package services

import "context"

// persistentContext keeps request values for work that must outlive the
// request, such as post-commit notifications.
func persistentContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}
