package scanService

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"ProjectDebris/internal/api/scan"
	scanRepository "ProjectDebris/internal/api/scan/repository"
	"ProjectDebris/internal/entity"
	"ProjectDebris/pkg/detector"
	redisPkg "ProjectDebris/pkg/redis"
	"ProjectDebris/pkg/s3"
	"ProjectDebris/pkg/utils"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

type progressUpdate struct {
	Status    entity.ScanStatus
	Progress  float64
	Simulated bool
}

// fakeScanStore is an in-memory stand-in for the Postgres repository.
type fakeScanStore struct {
	mu         sync.Mutex
	scans      map[string]entity.Scan
	order      []string
	results    map[string][]entity.ClassificationResult
	updates    map[string][]progressUpdate
	purgeCount int
}

func newFakeScanStore() *fakeScanStore {
	return &fakeScanStore{
		scans:   make(map[string]entity.Scan),
		results: make(map[string][]entity.ClassificationResult),
		updates: make(map[string][]progressUpdate),
	}
}

func (f *fakeScanStore) CreateScan(_ context.Context, sc entity.Scan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans[sc.ID] = sc
	f.order = append(f.order, sc.ID)
	return nil
}

func (f *fakeScanStore) UpdateScan(_ context.Context, id string, status entity.ScanStatus, progress float64, simulated bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	sc, ok := f.scans[id]
	if !ok {
		return scan.ErrScanNotFound
	}

	sc.Status = status
	sc.Progress = progress
	sc.Simulated = simulated
	sc.UpdatedAt = time.Now()
	f.scans[id] = sc
	f.updates[id] = append(f.updates[id], progressUpdate{Status: status, Progress: progress, Simulated: simulated})
	return nil
}

func (f *fakeScanStore) GetScanByID(_ context.Context, id string) (entity.Scan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sc, ok := f.scans[id]
	if !ok {
		return entity.Scan{}, scan.ErrScanNotFound
	}
	return sc, nil
}

func (f *fakeScanStore) GetAllScans(_ context.Context, limit, offset int) ([]entity.Scan, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var scans []entity.Scan
	for i := len(f.order) - 1; i >= 0; i-- {
		scans = append(scans, f.scans[f.order[i]])
	}

	total := len(scans)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return scans[offset:end], total, nil
}

func (f *fakeScanStore) InsertResult(_ context.Context, scanID string, result entity.ClassificationResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[scanID] = append(f.results[scanID], result)
	return nil
}

func (f *fakeScanStore) GetResultsByScanID(_ context.Context, scanID string) ([]entity.ClassificationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	results := make([]entity.ClassificationResult, len(f.results[scanID]))
	copy(results, f.results[scanID])
	return results, nil
}

func (f *fakeScanStore) DeleteResultsByScanID(_ context.Context, scanID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[scanID] = nil
	f.purgeCount++
	return nil
}

func (f *fakeScanStore) updatesFor(id string) []progressUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()

	updates := make([]progressUpdate, len(f.updates[id]))
	copy(updates, f.updates[id])
	return updates
}

type fakeRepository struct {
	store *fakeScanStore
}

func (f *fakeRepository) NewClient(_ bool) (scanRepository.Client, error) {
	return scanRepository.Client{
		Scans:    f.store,
		Commit:   func() error { return nil },
		Rollback: func() error { return nil },
	}, nil
}

// scriptedDetector replays a fixed sequence of outcomes per call.
type scriptedDetector struct {
	mu        sync.Mutex
	counts    []int
	errs      []error
	annotated string
	calls     int
}

func (d *scriptedDetector) Detect(_ context.Context, _ []byte, _ string) (*detector.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := d.calls
	d.calls++

	if idx < len(d.errs) && d.errs[idx] != nil {
		return nil, d.errs[idx]
	}

	count := 1
	if idx < len(d.counts) {
		count = d.counts[idx]
	}

	detections := make([]detector.Detection, count)
	for i := range detections {
		detections[i] = detector.Detection{
			Class:      "plastic_bottle",
			Confidence: 0.9,
			BBox:       []float64{0.1, 0.1, 0.2, 0.2},
		}
	}

	return &detector.Result{
		DetectionCount: count,
		Detections:     detections,
		AnnotatedImage: d.annotated,
	}, nil
}

// fakeRedis is an in-memory progress cache.
type fakeRedis struct {
	mu    sync.Mutex
	store map[string]string
	sets  int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{store: make(map[string]string)}
}

func (f *fakeRedis) SetScanProgress(_ context.Context, scanID string, snapshot string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store[scanID] = snapshot
	f.sets++
	return nil
}

func (f *fakeRedis) GetScanProgress(_ context.Context, scanID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot, ok := f.store[scanID]
	if !ok {
		return "", redisPkg.ErrNotFound
	}
	return snapshot, nil
}

func (f *fakeRedis) DeleteScanProgress(_ context.Context, scanID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.store, scanID)
	return nil
}

func (f *fakeRedis) snapshotCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.store)
}

// fakeS3 records uploads and signs by suffixing the location.
type fakeS3 struct {
	mu      sync.Mutex
	uploads map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{uploads: make(map[string][]byte)}
}

func (f *fakeS3) UploadBytes(key string, data []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads[key] = data
	return "https://debris.s3.amazonaws.com/" + key, nil
}

func (f *fakeS3) PresignUrl(fileUrl string) (string, error) {
	return fileUrl + "?signed", nil
}

func newService(store *fakeScanStore, remote, simulated detector.IDetector, mode string) IScanService {
	return New(newTestLogger(), &fakeRepository{store: store}, remote, simulated, nil, nil, utils.New(), mode)
}

func newServiceWithInfra(store *fakeScanStore, remote, simulated detector.IDetector, s3Client s3.ItfS3, redisServer redisPkg.IRedis, mode string) IScanService {
	return New(newTestLogger(), &fakeRepository{store: store}, remote, simulated, s3Client, redisServer, utils.New(), mode)
}

func testImages(n int) []entity.ImageInput {
	images := make([]entity.ImageInput, n)
	for i := range images {
		images[i] = entity.ImageInput{
			SourceRef: "beach-" + string(rune('a'+i)) + ".jpg",
			Data:      []byte{0xff, 0xd8, byte(i)},
		}
	}
	return images
}

func awaitTerminal(t *testing.T, svc IScanService, id string) *entity.Scan {
	t.Helper()

	var sc *entity.Scan
	require.Eventually(t, func() bool {
		var err error
		sc, err = svc.GetScan(context.Background(), id)
		if err != nil {
			return false
		}
		return sc.Status.Terminal()
	}, 2*time.Second, 10*time.Millisecond)

	return sc
}

func TestCreateScanRequiresImages(t *testing.T) {
	svc := newService(newFakeScanStore(), &scriptedDetector{}, &scriptedDetector{}, ModeRemote)

	_, err := svc.CreateScan(context.Background(), nil, "")
	assert.ErrorIs(t, err, scan.ErrNoImages)
}

func TestCreateScanProcessesImagesInOrder(t *testing.T) {
	store := newFakeScanStore()
	remote := &scriptedDetector{counts: []int{3, 10, 20}}
	svc := newService(store, remote, detector.NewSimulatedDetector(1, 0), ModeRemote)

	created, err := svc.CreateScan(context.Background(), testImages(3), ModeRemote)
	require.NoError(t, err)
	assert.Equal(t, entity.ScanStatusIdle, created.Status)
	assert.Equal(t, 3, created.TotalImages)

	sc := awaitTerminal(t, svc, created.ID)
	require.Equal(t, entity.ScanStatusComplete, sc.Status)
	assert.False(t, sc.Simulated)
	assert.Equal(t, float64(100), sc.Progress)

	require.Len(t, sc.Results, 3)
	wantSeverity := []entity.Severity{entity.SeverityGreen, entity.SeverityYellow, entity.SeverityRed}
	wantCount := []int{3, 10, 20}
	for i, result := range sc.Results {
		assert.Equal(t, i, result.Position)
		assert.Equal(t, testImages(3)[i].SourceRef, result.SourceRef)
		assert.Equal(t, wantCount[i], result.DetectionCount)
		assert.Equal(t, wantSeverity[i], result.SeverityLevel)
	}
}

func TestProgressAdvancesMonotonically(t *testing.T) {
	store := newFakeScanStore()
	remote := &scriptedDetector{counts: []int{1, 2, 3, 4}}
	svc := newService(store, remote, detector.NewSimulatedDetector(1, 0), ModeRemote)

	created, err := svc.CreateScan(context.Background(), testImages(4), ModeRemote)
	require.NoError(t, err)

	sc := awaitTerminal(t, svc, created.ID)
	require.Equal(t, entity.ScanStatusComplete, sc.Status)

	updates := store.updatesFor(created.ID)
	require.NotEmpty(t, updates)

	prev := -1.0
	for _, u := range updates {
		assert.GreaterOrEqual(t, u.Progress, prev)
		if u.Progress == 100 {
			assert.Equal(t, entity.ScanStatusComplete, u.Status)
		} else {
			assert.Equal(t, entity.ScanStatusRunning, u.Status)
		}
		prev = u.Progress
	}
	assert.Equal(t, float64(100), updates[len(updates)-1].Progress)
}

func TestRemoteFailureRestartsWholeBatchSimulated(t *testing.T) {
	store := newFakeScanStore()
	remote := &scriptedDetector{
		counts: []int{7, 0},
		errs:   []error{nil, detector.ErrDetectionFailed},
	}
	svc := newService(store, remote, detector.NewSimulatedDetector(42, 0), ModeRemote)

	created, err := svc.CreateScan(context.Background(), testImages(2), ModeRemote)
	require.NoError(t, err)

	sc := awaitTerminal(t, svc, created.ID)
	require.Equal(t, entity.ScanStatusComplete, sc.Status)
	assert.True(t, sc.Simulated)
	require.Len(t, sc.Results, 2)

	// The partial remote result must be purged before the simulated pass.
	assert.GreaterOrEqual(t, store.purgeCount, 2)

	// Both results must match an identically seeded simulated run.
	reference := detector.NewSimulatedDetector(42, 0)
	for i, result := range sc.Results {
		want, err := reference.Detect(context.Background(), nil, "")
		require.NoError(t, err)
		assert.Equal(t, want.DetectionCount, result.DetectionCount, "position %d", i)
	}
}

func TestSimulatedBackendFailureMarksScanFailed(t *testing.T) {
	store := newFakeScanStore()
	failing := &scriptedDetector{errs: []error{detector.ErrDetectionFailed}}
	svc := newService(store, &scriptedDetector{}, failing, ModeSimulated)

	created, err := svc.CreateScan(context.Background(), testImages(1), ModeSimulated)
	require.NoError(t, err)

	sc := awaitTerminal(t, svc, created.ID)
	assert.Equal(t, entity.ScanStatusFailed, sc.Status)
	assert.Empty(t, sc.Results)
}

func TestSimulatedScansAreReproducible(t *testing.T) {
	runScan := func() []int {
		store := newFakeScanStore()
		svc := newService(store, &scriptedDetector{}, detector.NewSimulatedDetector(7, 0), ModeSimulated)

		created, err := svc.CreateScan(context.Background(), testImages(5), ModeSimulated)
		require.NoError(t, err)

		sc := awaitTerminal(t, svc, created.ID)
		require.Equal(t, entity.ScanStatusComplete, sc.Status)

		counts := make([]int, 0, len(sc.Results))
		for _, result := range sc.Results {
			counts = append(counts, result.DetectionCount)
		}
		return counts
	}

	assert.Equal(t, runScan(), runScan())
}

func TestGetProgressFallsBackToDatabase(t *testing.T) {
	store := newFakeScanStore()
	remote := &scriptedDetector{counts: []int{2, 8}}
	svc := newService(store, remote, detector.NewSimulatedDetector(1, 0), ModeRemote)

	created, err := svc.CreateScan(context.Background(), testImages(2), ModeRemote)
	require.NoError(t, err)
	awaitTerminal(t, svc, created.ID)

	snapshot, err := svc.GetProgress(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, snapshot.ScanID)
	assert.Equal(t, string(entity.ScanStatusComplete), snapshot.Status)
	assert.Equal(t, float64(100), snapshot.Progress)
	assert.Equal(t, 2, snapshot.Completed)
	assert.Equal(t, 2, snapshot.Total)
}

func TestGetProgressUnknownScan(t *testing.T) {
	svc := newService(newFakeScanStore(), &scriptedDetector{}, &scriptedDetector{}, ModeRemote)

	_, err := svc.GetProgress(context.Background(), "missing")
	assert.ErrorIs(t, err, scan.ErrScanNotFound)
}

func TestGetAllScansPagination(t *testing.T) {
	store := newFakeScanStore()
	svc := newService(store, &scriptedDetector{counts: []int{1}}, detector.NewSimulatedDetector(1, 0), ModeRemote)

	var ids []string
	for i := 0; i < 3; i++ {
		created, err := svc.CreateScan(context.Background(), testImages(1), ModeRemote)
		require.NoError(t, err)
		awaitTerminal(t, svc, created.ID)
		ids = append(ids, created.ID)
	}

	scans, total, err := svc.GetAllScans(context.Background(), 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, scans, 2)

	scans, total, err = svc.GetAllScans(context.Background(), 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, scans, 1)
}

func TestFallbackRestartResetsProgressPerPass(t *testing.T) {
	store := newFakeScanStore()
	remote := &scriptedDetector{
		counts: []int{7, 0},
		errs:   []error{nil, detector.ErrDetectionFailed},
	}
	svc := newService(store, remote, detector.NewSimulatedDetector(42, 0), ModeRemote)

	created, err := svc.CreateScan(context.Background(), testImages(2), ModeRemote)
	require.NoError(t, err)

	sc := awaitTerminal(t, svc, created.ID)
	require.Equal(t, entity.ScanStatusComplete, sc.Status)

	// Progress is monotone within a pass; the restart legitimately drops it
	// back to zero because the simulated pass begins at image 0 again.
	updates := store.updatesFor(created.ID)
	var progress []float64
	var simulated []bool
	for _, u := range updates {
		progress = append(progress, u.Progress)
		simulated = append(simulated, u.Simulated)
	}
	assert.Equal(t, []float64{0, 50, 0, 50, 100}, progress)
	assert.Equal(t, []bool{false, false, true, true, true}, simulated)
	assert.Equal(t, entity.ScanStatusComplete, updates[len(updates)-1].Status)
}

func TestCompletedScanDropsProgressSnapshot(t *testing.T) {
	store := newFakeScanStore()
	cache := newFakeRedis()
	remote := &scriptedDetector{counts: []int{2, 8}}
	svc := newServiceWithInfra(store, remote, detector.NewSimulatedDetector(1, 0), nil, cache, ModeRemote)

	created, err := svc.CreateScan(context.Background(), testImages(2), ModeRemote)
	require.NoError(t, err)
	awaitTerminal(t, svc, created.ID)

	// Snapshots were cached while running, then dropped at completion.
	assert.GreaterOrEqual(t, cache.sets, 2)
	assert.Equal(t, 0, cache.snapshotCount())

	// A post-completion progress read falls back to the durable state.
	snapshot, err := svc.GetProgress(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.ScanStatusComplete), snapshot.Status)
	assert.Equal(t, float64(100), snapshot.Progress)
}

func TestAnnotatedUploadsArePresignedOnRead(t *testing.T) {
	store := newFakeScanStore()
	bucket := newFakeS3()
	remote := &scriptedDetector{
		counts:    []int{4},
		annotated: "data:image/jpeg;base64,aGVsbG8=",
	}
	svc := newServiceWithInfra(store, remote, detector.NewSimulatedDetector(1, 0), bucket, nil, ModeRemote)

	created, err := svc.CreateScan(context.Background(), testImages(1), ModeRemote)
	require.NoError(t, err)
	awaitTerminal(t, svc, created.ID)

	key := fmt.Sprintf("annotated/%s-0.jpg", created.ID)
	require.Contains(t, bucket.uploads, key)
	assert.Equal(t, []byte("hello"), bucket.uploads[key])

	sc, err := svc.GetScan(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, sc.Results, 1)
	assert.Equal(t, "https://debris.s3.amazonaws.com/"+key+"?signed", sc.Results[0].AnnotatedRef)
}
