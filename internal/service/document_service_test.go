package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omnidocs-go/internal/model"
	"omnidocs-go/pkg/tasks"
)

type stubDocRepo struct {
	docs    map[uint]*model.Document
	nextID  uint
	created int
}

func newStubDocRepo() *stubDocRepo {
	return &stubDocRepo{docs: make(map[uint]*model.Document)}
}

func (s *stubDocRepo) CreateDocument(doc *model.Document) error {
	s.nextID++
	doc.ID = s.nextID
	cp := *doc
	s.docs[doc.ID] = &cp
	s.created++
	return nil
}

func (s *stubDocRepo) GetDocument(id uint) (*model.Document, error) {
	doc, ok := s.docs[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	cp := *doc
	return &cp, nil
}

func (s *stubDocRepo) ListDocuments(tenantID uint, limit, offset int) ([]model.Document, int64, error) {
	var all []model.Document
	for id := s.nextID; id >= 1; id-- {
		if doc, ok := s.docs[id]; ok && doc.TenantID == tenantID {
			all = append(all, *doc)
		}
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (s *stubDocRepo) UpdateDocumentStatus(uint, model.DocumentStatus) error { return nil }
func (s *stubDocRepo) ReplaceSegments(uint, []*model.Segment) error          { return nil }
func (s *stubDocRepo) GetSegments(uint) ([]model.Segment, error)             { return nil, nil }

type stubProducer struct {
	sent []tasks.DocumentProcessingTask
	err  error
}

func (s *stubProducer) ProduceProcessingTask(_ context.Context, task tasks.DocumentProcessingTask) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, task)
	return nil
}

type stubSigner struct{}

func (stubSigner) PresignedGetURL(_ context.Context, objectName string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("https://minio.local/%s?expires=%d", objectName, int(expiry.Seconds())), nil
}

func TestCreateDocumentProducesTask(t *testing.T) {
	repo := newStubDocRepo()
	producer := &stubProducer{}
	svc := NewDocumentService(repo, producer, stubSigner{})

	sess := &model.UploadSession{
		SessionID: "s1",
		TenantID:  3,
		UserID:    9,
		Filename:  "report.txt",
		TotalSize: 128,
	}
	id, err := svc.CreateDocument(context.Background(), sess, "deadbeef", "merged/s1/report.txt")
	require.NoError(t, err)
	require.NotZero(t, id)

	doc, err := svc.GetDocument(id)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentUploaded, doc.Status)
	assert.Equal(t, uint(3), doc.TenantID)
	assert.Equal(t, "merged/s1/report.txt", doc.StoragePath)

	require.Len(t, producer.sent, 1)
	assert.Equal(t, id, producer.sent[0].DocumentID)
	assert.Equal(t, "merged/s1/report.txt", producer.sent[0].StoragePath)
	assert.Equal(t, "deadbeef", producer.sent[0].ContentHash)
}

func TestCreateDocumentSurvivesProduceFailure(t *testing.T) {
	repo := newStubDocRepo()
	producer := &stubProducer{err: errors.New("broker unreachable")}
	svc := NewDocumentService(repo, producer, stubSigner{})

	sess := &model.UploadSession{SessionID: "s2", TenantID: 1, UserID: 1, Filename: "a.txt", TotalSize: 8}
	id, err := svc.CreateDocument(context.Background(), sess, "", "merged/s2/a.txt")

	// 文档已落库，投递失败不回滚
	require.NoError(t, err)
	require.NotZero(t, id)
	assert.Equal(t, 1, repo.created)
}

func TestGetDownloadURLSignsStoragePath(t *testing.T) {
	svc := NewDocumentService(newStubDocRepo(), &stubProducer{}, stubSigner{})

	doc := &model.Document{ID: 5, StoragePath: "merged/s1/report.txt"}
	url, err := svc.GetDownloadURL(context.Background(), doc)
	require.NoError(t, err)
	assert.Contains(t, url, "merged/s1/report.txt")
}
