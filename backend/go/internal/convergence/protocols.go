package convergence

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/logger"
)

// DocumentStore is where protocol documents are published.
type DocumentStore interface {
	Put(ctx context.Context, name string, content []byte) error
}

// FileStore writes documents into a local directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Put(_ context.Context, name string, content []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create protocol directory: %w", err)
	}
	return os.WriteFile(filepath.Join(s.dir, name), content, 0o644)
}

// MinioStore uploads documents to an object storage bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinioStore creates a MinioStore. Objects are named prefix/name.
func NewMinioStore(client *minio.Client, bucket, prefix string) *MinioStore {
	return &MinioStore{client: client, bucket: bucket, prefix: prefix}
}

func (s *MinioStore) Put(ctx context.Context, name string, content []byte) error {
	object := name
	if s.prefix != "" {
		object = path.Join(s.prefix, name)
	}
	_, err := s.client.PutObject(ctx, s.bucket, object, bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: "text/markdown; charset=utf-8"})
	if err != nil {
		return fmt.Errorf("upload %s to bucket %s: %w", object, s.bucket, err)
	}
	return nil
}

// ProtocolLibrary publishes the per-severity intervention protocols that
// intervention notices refer to.
type ProtocolLibrary struct {
	store  DocumentStore
	logger *logger.Logger
}

// NewProtocolLibrary creates a new ProtocolLibrary.
func NewProtocolLibrary(store DocumentStore, log *logger.Logger) *ProtocolLibrary {
	return &ProtocolLibrary{store: store, logger: log.Component("protocols")}
}

// Publish writes all three protocol documents.
func (p *ProtocolLibrary) Publish(ctx context.Context) error {
	for _, sev := range []models.Severity{models.SeverityCritical, models.SeverityHigh, models.SeverityMedium} {
		name := ProtocolRef(sev)
		if err := p.store.Put(ctx, name, []byte(ProtocolDocument(sev))); err != nil {
			return fmt.Errorf("publish %s: %w", name, err)
		}
	}
	p.logger.Info("Convergence protocol documents published")
	return nil
}

type protocolText struct {
	title   string
	heading string
	intro   string
	actions []string
	contact string
	target  string
	maxDiv  string
}

var protocols = map[models.Severity]protocolText{
	models.SeverityCritical: {
		title:   "CRITICAL CONVERGENCE PROTOCOL",
		heading: "Immediate Action Required",
		intro:   "This agent has reached CRITICAL divergence levels and requires immediate intervention.",
		actions: []string{
			"**STOP** all current activities",
			"**REVIEW** the project goals",
			"**ASSESS** current understanding and alignment",
			"**IMPLEMENT** immediate corrections",
			"**REPORT** status within 1 hour",
		},
		contact: "Coordinator operator: immediate assistance required",
		target:  "8+/10",
		maxDiv:  "<0.3",
	},
	models.SeverityHigh: {
		title:   "HIGH DIVERGENCE PROTOCOL",
		heading: "Urgent Action Required",
		intro:   "This agent has reached HIGH divergence levels and requires urgent attention.",
		actions: []string{
			"**PAUSE** current activities",
			"**REVIEW** the project goals",
			"**ASSESS** current understanding and alignment",
			"**IMPLEMENT** corrections",
			"**REPORT** status within 2 hours",
		},
		contact: "Coordinator operator: assistance available",
		target:  "7+/10",
		maxDiv:  "<0.4",
	},
	models.SeverityMedium: {
		title:   "MEDIUM DIVERGENCE PROTOCOL",
		heading: "Standard Action Required",
		intro:   "This agent has reached MEDIUM divergence levels and would benefit from alignment review.",
		actions: []string{
			"**REVIEW** current activities",
			"**ASSESS** understanding and alignment",
			"**IMPLEMENT** minor corrections",
			"**REPORT** status within 4 hours",
		},
		contact: "Coordinator operator: available if needed",
		target:  "6+/10",
		maxDiv:  "<0.5",
	},
}

// ProtocolDocument renders the markdown protocol for sev.
func ProtocolDocument(sev models.Severity) string {
	p, ok := protocols[sev]
	if !ok {
		p = protocols[models.SeverityMedium]
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\n\n## %s\n\n%s\n\n### Required Actions:\n", p.title, p.heading, p.intro)
	for i, a := range p.actions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, a)
	}
	fmt.Fprintf(&b, "\n### Contact:\n- %s\n\n", p.contact)
	fmt.Fprintf(&b, "### Convergence Goals:\n- Understanding Score: %s\n- Alignment Score: %s\n- Divergence Level: %s\n\n", p.target, p.target, p.maxDiv)
	b.WriteString("### Next Steps:\n1. Review project documentation\n2. Align with team objectives\n3. Implement convergence corrections\n4. Report status to the coordinator\n")
	return b.String()
}
