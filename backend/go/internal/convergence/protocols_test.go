package convergence

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/logger"
)

func TestProtocolLibrary_PublishToFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "protocols")
	lib := NewProtocolLibrary(NewFileStore(dir), logger.Discard())
	require.NoError(t, lib.Publish(context.Background()))

	for sev, title := range map[models.Severity]string{
		models.SeverityCritical: "# CRITICAL CONVERGENCE PROTOCOL",
		models.SeverityHigh:     "# HIGH DIVERGENCE PROTOCOL",
		models.SeverityMedium:   "# MEDIUM DIVERGENCE PROTOCOL",
	} {
		data, err := os.ReadFile(filepath.Join(dir, ProtocolRef(sev)))
		require.NoError(t, err)
		assert.Contains(t, string(data), title)
		assert.Contains(t, string(data), "### Convergence Goals:")
	}
}

func TestProtocolDocument_Goals(t *testing.T) {
	assert.Contains(t, ProtocolDocument(models.SeverityCritical), "Divergence Level: <0.3")
	assert.Contains(t, ProtocolDocument(models.SeverityHigh), "Understanding Score: 7+/10")
	assert.Contains(t, ProtocolDocument(models.SeverityMedium), "REPORT** status within 4 hours")
}
