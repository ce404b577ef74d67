package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/ontology-api/internal/clustering"
	"github.com/jonathan/ontology-api/internal/extraction"
	"github.com/jonathan/ontology-api/internal/jobs"
	"github.com/jonathan/ontology-api/internal/modelslot"
	"github.com/jonathan/ontology-api/internal/types"
)

// fakeStore is an in-memory MetadataStore.
type fakeStore struct {
	mu          sync.Mutex
	databases   map[string]*types.Database
	schemas     map[string]*types.DatabaseSchema
	clusterings map[string]*types.ClusteringResult
	concepts    map[string][]types.Concept
	rels        map[string][]types.Relationship
	nextID      int
	failWith    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		databases:   make(map[string]*types.Database),
		schemas:     make(map[string]*types.DatabaseSchema),
		clusterings: make(map[string]*types.ClusteringResult),
		concepts:    make(map[string][]types.Concept),
		rels:        make(map[string][]types.Relationship),
	}
}

func (f *fakeStore) CreateDatabase(_ context.Context, name string) (*types.Database, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.nextID++
	d := &types.Database{
		ID:        fmt.Sprintf("db_%010d", f.nextID),
		Name:      name,
		Status:    "created",
		CreatedAt: time.Now(),
	}
	f.databases[d.ID] = d
	copy := *d
	return &copy, nil
}

func (f *fakeStore) GetDatabase(_ context.Context, id string) (*types.Database, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.databases[id]
	if !ok {
		return nil, nil
	}
	copy := *d
	return &copy, nil
}

func (f *fakeStore) ListDatabases(_ context.Context) ([]types.Database, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Database
	for _, d := range f.databases {
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.databases[id]; ok {
		d.Status = status
	}
	return nil
}

func (f *fakeStore) SaveSchema(_ context.Context, id string, schema *types.DatabaseSchema) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schemas[id] = schema
	if d, ok := f.databases[id]; ok {
		d.Status = "ready"
		d.TableCount = schema.TableCount
	}
	return nil
}

func (f *fakeStore) GetSchema(_ context.Context, id string) (*types.DatabaseSchema, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.schemas[id], nil
}

func (f *fakeStore) DeleteDatabase(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.databases[id]
	delete(f.databases, id)
	delete(f.schemas, id)
	return ok, nil
}

func (f *fakeStore) SaveClustering(_ context.Context, databaseID string, clusters []types.ClusterInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clusterings[databaseID] = &types.ClusteringResult{
		DatabaseID: databaseID,
		Clusters:   clusters,
		CreatedAt:  time.Now(),
	}
	return nil
}

func (f *fakeStore) GetClustering(_ context.Context, databaseID string) (*types.ClusteringResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clusterings[databaseID], nil
}

func (f *fakeStore) SaveOntology(_ context.Context, databaseID string, concepts []types.Concept, relationships []types.Relationship) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.concepts[databaseID] = concepts
	f.rels[databaseID] = relationships
	return nil
}

func (f *fakeStore) GetOntology(_ context.Context, databaseID string) ([]types.Concept, []types.Relationship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.concepts[databaseID], f.rels[databaseID], nil
}

// fakeProvisioner records provisioning calls.
type fakeProvisioner struct {
	mu       sync.Mutex
	created  []string
	dropped  []string
	scripts  map[string]string
	schema   *types.DatabaseSchema
	sqlErr   error
	introErr error
}

func newFakeProvisioner(schema *types.DatabaseSchema) *fakeProvisioner {
	return &fakeProvisioner{scripts: make(map[string]string), schema: schema}
}

func (f *fakeProvisioner) CreateDatabase(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, name)
	return nil
}

func (f *fakeProvisioner) DropDatabase(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropped = append(f.dropped, name)
	return nil
}

func (f *fakeProvisioner) ExecuteSQL(_ context.Context, name, script string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sqlErr != nil {
		return f.sqlErr
	}
	f.scripts[name] = script
	return nil
}

func (f *fakeProvisioner) Schema(_ context.Context, databaseID, _ string) (*types.DatabaseSchema, error) {
	if f.introErr != nil {
		return nil, f.introErr
	}
	s := *f.schema
	s.DatabaseID = databaseID
	return &s, nil
}

// fakeSlots is a canned Slots implementation.
type fakeSlots struct {
	mu       sync.Mutex
	loaded   bool
	unloaded bool
	loadErr  error
	info     map[string]modelslot.SlotInfo
}

func newFakeSlots() *fakeSlots {
	return &fakeSlots{info: map[string]modelslot.SlotInfo{
		modelslot.SlotBase:    {Status: modelslot.StatusReady},
		modelslot.SlotConcept: {Status: modelslot.StatusNotLoaded},
	}}
}

func (f *fakeSlots) LoadBase(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return f.loadErr
	}
	f.loaded = true
	return nil
}

func (f *fakeSlots) UnloadAll(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unloaded = true
	return nil
}

func (f *fakeSlots) Info(name string) (modelslot.SlotInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.info[name]
	if !ok {
		return modelslot.SlotInfo{}, &modelslot.UnknownSlotError{Slot: name}
	}
	return info, nil
}

func (f *fakeSlots) AllInfo() map[string]modelslot.SlotInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]modelslot.SlotInfo, len(f.info))
	for k, v := range f.info {
		out[k] = v
	}
	return out
}

func (f *fakeSlots) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.info[modelslot.SlotBase].Status == modelslot.StatusReady
}

func (f *fakeSlots) AllReady() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.info {
		if v.Status != modelslot.StatusReady {
			return false
		}
	}
	return true
}

func personSchema() *types.DatabaseSchema {
	return &types.DatabaseSchema{
		TableCount: 2,
		Tables: []types.Table{
			{
				Name: "person",
				Columns: []types.Column{
					{Name: "id", DataType: "integer"},
					{Name: "name", DataType: "text", Nullable: true},
				},
				PrimaryKey: []string{"id"},
			},
			{
				Name: "address",
				Columns: []types.Column{
					{Name: "id", DataType: "integer"},
					{Name: "person_id", DataType: "integer"},
				},
				PrimaryKey: []string{"id"},
				ForeignKeys: []types.ForeignKey{
					{Column: "person_id", ReferencedTable: "person", ReferencedColumn: "id"},
				},
			},
		},
	}
}

// testPipeline returns a pipeline with canned, instant results.
func testPipeline() Pipeline {
	return Pipeline{
		Cluster: func(_ context.Context, schema *types.DatabaseSchema, progress clustering.ProgressFunc) ([]types.ClusterInfo, error) {
			if progress != nil {
				progress(len(schema.Tables), len(schema.Tables), "Clustering complete")
			}
			var names []string
			for _, t := range schema.Tables {
				names = append(names, t.Name)
			}
			return []types.ClusterInfo{{ClusterID: 1, Name: "person", Tables: names}}, nil
		},
		ExtractConcepts: func(_ context.Context, cluster types.ClusterInfo, _ []types.Table, _ []types.Concept, progress extraction.ProgressFunc) ([]types.Concept, error) {
			if progress != nil {
				progress(90, 100, "Validated 1 concepts...")
			}
			return []types.Concept{{ID: fmt.Sprintf("concept_%d_1", cluster.ClusterID), Name: "Person", ClusterID: cluster.ClusterID}}, nil
		},
		GenerateAttributes: func(_ context.Context, concepts []types.Concept, _ []types.Table, _ extraction.ProgressFunc) ([]types.Concept, error) {
			out := make([]types.Concept, len(concepts))
			for i, c := range concepts {
				c.Attributes = []types.ConceptAttribute{{Table: "person", Column: "name"}}
				out[i] = c
			}
			return out, nil
		},
		GenerateRelationships: func(_ context.Context, concepts []types.Concept, _ []types.Table, _ extraction.ProgressFunc) ([]types.Relationship, error) {
			return []types.Relationship{{ID: "rel_1", FromConceptID: concepts[0].ID, ToConceptID: concepts[1].ID, Name: "has"}}, nil
		},
		SuggestNames: func(_ context.Context, tables []string) ([]string, error) {
			return []string{tables[0] + " domain"}, nil
		},
	}
}

type testEnv struct {
	server *Server
	store  *fakeStore
	prov   *fakeProvisioner
	slots  *fakeSlots
	jobs   *jobs.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newFakeStore()
	prov := newFakeProvisioner(personSchema())
	slots := newFakeSlots()
	registry := jobs.NewRegistry(nil)
	t.Cleanup(func() { _ = registry.Close(time.Second) })

	srv := New(Config{Port: 0}, Deps{
		Store:     store,
		Provision: prov,
		Slots:     slots,
		Jobs:      registry,
		Pipeline:  testPipeline(),
	})
	return &testEnv{server: srv, store: store, prov: prov, slots: slots, jobs: registry}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// createDatabase registers a database through the API and returns its id.
func (e *testEnv) createDatabase(t *testing.T) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/databases", types.CreateDatabaseRequest{Name: "shop", SQL: "CREATE TABLE person (id int);"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	return id
}

// waitForJob polls the job endpoint until the job is terminal.
func (e *testEnv) waitForJob(t *testing.T, jobID string) map[string]any {
	t.Helper()
	var body map[string]any
	require.Eventually(t, func() bool {
		rec := e.do(t, http.MethodGet, "/jobs/"+jobID, nil)
		if rec.Code != http.StatusOK {
			return false
		}
		body = decodeBody(t, rec)
		status, _ := body["status"].(string)
		return status == "completed" || status == "failed"
	}, 2*time.Second, 5*time.Millisecond)
	return body
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestCreateDatabase(t *testing.T) {
	env := newTestEnv(t)
	id := env.createDatabase(t)

	assert.Equal(t, []string{id}, env.prov.created)
	assert.Contains(t, env.prov.scripts[id], "CREATE TABLE person")

	rec := env.do(t, http.MethodGet, "/databases/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, float64(2), body["tableCount"])
}

func TestCreateDatabaseRejectsMissingName(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/databases", map[string]string{"sql": "SELECT 1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateDatabaseBadScript(t *testing.T) {
	env := newTestEnv(t)
	env.prov.sqlErr = errors.New("syntax error at or near \"CREATEE\"")

	rec := env.do(t, http.MethodPost, "/databases", types.CreateDatabaseRequest{Name: "broken", SQL: "CREATEE TABLE x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "SQL script failed")

	// The record is kept for inspection but flagged.
	for _, d := range env.store.databases {
		assert.Equal(t, "error", d.Status)
	}
}

func TestListDatabasesEmpty(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/databases", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	databases, ok := body["databases"].([]any)
	require.True(t, ok)
	assert.Empty(t, databases)
}

func TestGetDatabaseNotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/databases/db_0000000000", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSchema(t *testing.T) {
	env := newTestEnv(t)
	id := env.createDatabase(t)

	rec := env.do(t, http.MethodGet, "/databases/"+id+"/schema", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["tableCount"])
}

func TestClusterJob(t *testing.T) {
	env := newTestEnv(t)
	id := env.createDatabase(t)

	rec := env.do(t, http.MethodPost, "/databases/"+id+"/cluster", nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	accepted := decodeBody(t, rec)
	jobID, _ := accepted["jobId"].(string)
	require.NotEmpty(t, jobID)
	assert.Equal(t, "pending", accepted["status"])

	body := env.waitForJob(t, jobID)
	require.Equal(t, "completed", body["status"])
	result, ok := body["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, id, result["databaseId"])

	// The clustering is persisted and retrievable.
	rec = env.do(t, http.MethodGet, "/databases/"+id+"/cluster", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	saved := decodeBody(t, rec)
	clusters, ok := saved["clusters"].([]any)
	require.True(t, ok)
	assert.Len(t, clusters, 1)
}

func TestClusterRequiresSchema(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/databases/db_missing/cluster", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSaveAndGetClustering(t *testing.T) {
	env := newTestEnv(t)
	id := env.createDatabase(t)

	req := types.SaveClusteringRequest{Clustering: types.ClusteringResult{
		DatabaseID: id,
		Clusters:   []types.ClusterInfo{{ClusterID: 1, Name: "people", Tables: []string{"person", "address"}}},
	}}
	rec := env.do(t, http.MethodPut, "/databases/"+id+"/cluster", req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/databases/"+id+"/cluster", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	clusters := body["clusters"].([]any)
	require.Len(t, clusters, 1)
	first := clusters[0].(map[string]any)
	assert.Equal(t, "people", first["name"])
}

func TestSaveClusteringRejectsEmpty(t *testing.T) {
	env := newTestEnv(t)
	id := env.createDatabase(t)
	rec := env.do(t, http.MethodPut, "/databases/"+id+"/cluster", types.SaveClusteringRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetClusteringNotFound(t *testing.T) {
	env := newTestEnv(t)
	id := env.createDatabase(t)
	rec := env.do(t, http.MethodGet, "/databases/"+id+"/cluster", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGenerateConceptsJob(t *testing.T) {
	env := newTestEnv(t)
	id := env.createDatabase(t)

	req := types.GenerateConceptsRequest{Clusters: []types.ClusterInfo{
		{ClusterID: 1, Tables: []string{"person"}},
		{ClusterID: 2, Tables: []string{"address"}},
	}}
	rec := env.do(t, http.MethodPost, "/databases/"+id+"/concepts/generate", req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	jobID := decodeBody(t, rec)["jobId"].(string)

	body := env.waitForJob(t, jobID)
	require.Equal(t, "completed", body["status"], body["error"])
	result := body["result"].(map[string]any)
	concepts := result["concepts"].([]any)
	assert.Len(t, concepts, 2)

	progress := body["progress"].(map[string]any)
	assert.Equal(t, float64(100), progress["percentage"])

	// The ontology was persisted.
	saved, _, err := env.store.GetOntology(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, saved, 2)
}

func TestGenerateConceptsFailure(t *testing.T) {
	env := newTestEnv(t)
	id := env.createDatabase(t)

	pipeline := testPipeline()
	pipeline.ExtractConcepts = func(context.Context, types.ClusterInfo, []types.Table, []types.Concept, extraction.ProgressFunc) ([]types.Concept, error) {
		return nil, errors.New("model output rejected: concepts is required")
	}
	env.server.pipeline = pipeline

	req := types.GenerateConceptsRequest{Clusters: []types.ClusterInfo{{ClusterID: 3, Tables: []string{"person"}}}}
	rec := env.do(t, http.MethodPost, "/databases/"+id+"/concepts/generate", req)
	require.Equal(t, http.StatusAccepted, rec.Code)
	jobID := decodeBody(t, rec)["jobId"].(string)

	body := env.waitForJob(t, jobID)
	assert.Equal(t, "failed", body["status"])
	errMsg, _ := body["error"].(string)
	assert.Contains(t, errMsg, "cluster 3")
	assert.Nil(t, body["result"])
}

func TestClusterConceptsSynchronous(t *testing.T) {
	env := newTestEnv(t)
	id := env.createDatabase(t)

	req := types.ClusterConceptsRequest{Tables: []string{"person"}}
	rec := env.do(t, http.MethodPost, "/databases/"+id+"/concepts/cluster/7", req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	concepts := body["concepts"].([]any)
	require.Len(t, concepts, 1)
	first := concepts[0].(map[string]any)
	assert.Equal(t, "concept_7_1", first["id"])
}

func TestClusterConceptsUnknownTables(t *testing.T) {
	env := newTestEnv(t)
	id := env.createDatabase(t)

	req := types.ClusterConceptsRequest{Tables: []string{"no_such_table"}}
	rec := env.do(t, http.MethodPost, "/databases/"+id+"/concepts/cluster/1", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClusterConceptsBadClusterID(t *testing.T) {
	env := newTestEnv(t)
	id := env.createDatabase(t)
	rec := env.do(t, http.MethodPost, "/databases/"+id+"/concepts/cluster/abc", types.ClusterConceptsRequest{Tables: []string{"person"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateAttributesJob(t *testing.T) {
	env := newTestEnv(t)
	id := env.createDatabase(t)

	concepts := []types.Concept{{ID: "concept_1_1", Name: "Person", ClusterID: 1}}
	req := types.GenerateAttributesRequest{Concepts: concepts, Tables: []string{"person"}}
	rec := env.do(t, http.MethodPost, "/databases/"+id+"/attributes/generate", req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	jobID := decodeBody(t, rec)["jobId"].(string)

	body := env.waitForJob(t, jobID)
	require.Equal(t, "completed", body["status"], body["error"])
	result := body["result"].(map[string]any)
	enriched := result["concepts"].([]any)
	require.Len(t, enriched, 1)
	first := enriched[0].(map[string]any)
	attrs := first["attributes"].([]any)
	assert.Len(t, attrs, 1)
}

func TestGenerateRelationshipsJob(t *testing.T) {
	env := newTestEnv(t)
	id := env.createDatabase(t)

	concepts := []types.Concept{
		{ID: "concept_1_1", Name: "Person", ClusterID: 1},
		{ID: "concept_1_2", Name: "Address", ClusterID: 1},
	}
	req := types.GenerateRelationshipsRequest{Concepts: concepts, Tables: []string{"person", "address"}}
	rec := env.do(t, http.MethodPost, "/databases/"+id+"/relationships/generate", req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	jobID := decodeBody(t, rec)["jobId"].(string)

	body := env.waitForJob(t, jobID)
	require.Equal(t, "completed", body["status"], body["error"])

	rec = env.do(t, http.MethodGet, "/databases/"+id+"/ontology", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ontology := decodeBody(t, rec)
	rels := ontology["relationships"].([]any)
	require.Len(t, rels, 1)
	first := rels[0].(map[string]any)
	assert.Equal(t, "concept_1_1", first["fromConceptId"])
}

func TestGenerateRelationshipsRejectsSingleConcept(t *testing.T) {
	env := newTestEnv(t)
	id := env.createDatabase(t)

	req := types.GenerateRelationshipsRequest{
		Concepts: []types.Concept{{ID: "concept_1_1", Name: "Person"}},
		Tables:   []string{"person"},
	}
	rec := env.do(t, http.MethodPost, "/databases/"+id+"/relationships/generate", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSuggestNames(t *testing.T) {
	env := newTestEnv(t)
	id := env.createDatabase(t)

	rec := env.do(t, http.MethodPost, "/databases/"+id+"/names/suggest", types.SuggestNamesRequest{Tables: []string{"person"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	names := decodeBody(t, rec)["names"].([]any)
	require.Len(t, names, 1)
	assert.Equal(t, "person domain", names[0])

	rec = env.do(t, http.MethodPost, "/databases/"+id+"/names/suggest", types.SuggestNamesRequest{Tables: []string{"bogus"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOntologyEmpty(t *testing.T) {
	env := newTestEnv(t)
	id := env.createDatabase(t)

	rec := env.do(t, http.MethodGet, "/databases/"+id+"/ontology", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Empty(t, body["concepts"])
	assert.Empty(t, body["relationships"])
}

func TestGetJobNotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/jobs/job_000000000000", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestModelStatus(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/models/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	slots := body["slots"].(map[string]any)
	assert.Contains(t, slots, modelslot.SlotBase)
	assert.Equal(t, false, body["allReady"])
}

func TestModelSlotStatus(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/models/status/"+modelslot.SlotBase, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(modelslot.StatusReady), decodeBody(t, rec)["status"])

	rec = env.do(t, http.MethodGet, "/models/status/bogus", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestModelsReady(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/models/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	env.slots.info[modelslot.SlotBase] = modelslot.SlotInfo{Status: modelslot.StatusNotLoaded}
	rec = env.do(t, http.MethodGet, "/models/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLoadBase(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/models/load-base", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.slots.loaded)

	env.slots.loadErr = errors.New("model llama3:8b not found")
	rec = env.do(t, http.MethodPost, "/models/load-base", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/databases", nil)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-API-Key")
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPatch, "/databases", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestErrorResponsesAreJSON(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/databases/db_missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))
	assert.NotEmpty(t, decodeBody(t, rec)["error"])
}
