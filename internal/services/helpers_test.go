// internal/services/helpers_test.go
package services

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agriqcert/agriqcert-backend/internal/broker"
	"github.com/agriqcert/agriqcert-backend/internal/models"
	"github.com/agriqcert/agriqcert-backend/internal/repository/memory"
	"github.com/agriqcert/agriqcert-backend/internal/session"
)

type fakeFiles struct {
	mu       sync.Mutex
	uploaded []string
	deleted  []string
	failOn   int // 1-based upload index to fail, 0 never
}

func (f *fakeFiles) UploadFile(ctx context.Context, header *multipart.FileHeader, options UploadOptions) (*UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failOn > 0 && len(f.uploaded)+1 == f.failOn {
		return nil, errors.New("bucket unavailable")
	}
	key := options.Folder + "/" + header.Filename
	f.uploaded = append(f.uploaded, key)
	return &UploadResult{URL: "/uploads/" + key, Key: key, Size: header.Size, MimeType: header.Header.Get("Content-Type")}, nil
}

func (f *fakeFiles) DeleteFile(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

type fixture struct {
	store     *memory.Store
	files     *fakeFiles
	events    *broker.RecordingPublisher
	lifecycle *LifecycleService
	auth      *AuthService

	exporter, otherExporter, qa, importer, admin Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:  memory.NewStore(),
		files:  &fakeFiles{},
		events: &broker.RecordingPublisher{},
	}
	f.lifecycle = NewLifecycleService(f.store, f.files, UploadOptions{Folder: "batches"}, 3, f.events)
	f.auth = NewAuthService(f.store.Users(), session.NewMemoryStore(), 24*time.Hour)

	f.exporter = f.addUser(t, "exporter1", models.RoleExporter)
	f.otherExporter = f.addUser(t, "exporter2", models.RoleExporter)
	f.qa = f.addUser(t, "qa_agency1", models.RoleQA)
	f.importer = f.addUser(t, "importer1", models.RoleImporter)
	f.admin = f.addUser(t, "admin", models.RoleAdmin)
	return f
}

func (f *fixture) addUser(t *testing.T, username string, role models.Role) Actor {
	t.Helper()
	u := &models.User{Username: username, Role: role}
	require.NoError(t, u.SetPassword("123456"))
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return Actor{ID: u.ID, Username: u.Username, Role: u.Role}
}

func (f *fixture) createBatch(t *testing.T) *models.Batch {
	t.Helper()
	b, err := f.lifecycle.CreateBatch(context.Background(), f.exporter, CreateBatchRequest{
		ProductType: "Basmati Rice",
		Quantity:    "500 kg",
		Location:    "Karnal",
		Destination: "Dubai",
	}, nil)
	require.NoError(t, err)
	return b
}

func (f *fixture) certify(t *testing.T, b *models.Batch) {
	t.Helper()
	_, err := f.lifecycle.SubmitInspection(context.Background(), f.qa, SubmitInspectionRequest{
		BatchID: b.ID.String(),
		Result:  string(models.ResultPass),
	})
	require.NoError(t, err)
}

func (f *fixture) order(t *testing.T, b *models.Batch) {
	t.Helper()
	_, err := f.lifecycle.PlaceOrder(context.Background(), f.importer, b.ID.String(), "")
	require.NoError(t, err)
}

// fileHeaders builds real multipart headers by round-tripping a form.
func fileHeaders(t *testing.T, names ...string) []*multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, name := range names {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="attachments"; filename="`+name+`"`)
		h.Set("Content-Type", "image/png")
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte("\x89PNG\r\n\x1a\nfake"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	return form.File["attachments"]
}
