package notifier

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnect_EmptyURLReturnsNoOpNotifier(t *testing.T) {
	n, err := Connect("", "")
	require.NoError(t, err)
	require.NotNil(t, n)

	// A no-op Notifier publishes nothing and never errors.
	require.NoError(t, n.Publish(ExtractionCompleted{PackageName: "scope/pkg"}))
	n.Close()
}

func TestConnect_DefaultsSubjectWhenEmpty(t *testing.T) {
	n, err := Connect("", "")
	require.NoError(t, err)
	require.Equal(t, DefaultSubject, n.subject)
}

func TestConnect_UnreachableURLReturnsError(t *testing.T) {
	_, err := Connect("nats://127.0.0.1:1", "apisurface.test")
	require.Error(t, err)
}
