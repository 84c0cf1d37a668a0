package sink

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vcabral19/json-placeholder-elt/internal/domain"
	"github.com/vcabral19/json-placeholder-elt/internal/pipeline"
)

var companySpec = pipeline.KindSpec{Kind: domain.KindCompany, Fields: domain.CompanyFields, Dedupe: true}

func company(id int64, name string) domain.Projection {
	return domain.ProcessedCompany{
		CompanyID:    id,
		Name:         name,
		CatchPhrase:  "Multi-layered, client-server",
		BS:           "harness",
		ExtractionTS: "2009-02-13T23:31:30+00:00",
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\r\n"), "\r\n")
}

func TestWriteRows_PathAndContents(t *testing.T) {
	root := t.TempDir()
	s := NewCSVSink(root)

	path, err := s.WriteRows(companySpec, "2009-02-13/23", 1234567890, []domain.Projection{company(7, "Acme")})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "company", "2009-02-13", "23", "processed_company_1234567890.csv"), path)

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Equal(t, "company_id,name,catchPhrase,bs,extraction_ts", lines[0])
	assert.Equal(t, `7,Acme,"Multi-layered, client-server",harness,2009-02-13T23:31:30+00:00`, lines[1])
}

func TestWriteRows_HeaderOnce(t *testing.T) {
	s := NewCSVSink(t.TempDir())

	path, err := s.WriteRows(companySpec, "2009-02-13/23", 1, []domain.Projection{company(1, "a")})
	require.NoError(t, err)
	_, err = s.WriteRows(companySpec, "2009-02-13/23", 1, []domain.Projection{company(2, "b"), company(3, "c")})
	require.NoError(t, err)

	lines := readLines(t, path)
	require.Len(t, lines, 4)
	headers := 0
	for _, l := range lines {
		if strings.HasPrefix(l, "company_id,") {
			headers++
		}
	}
	assert.Equal(t, 1, headers)
}

func TestWriteRows_EmptyWritesHeaderOnly(t *testing.T) {
	s := NewCSVSink(t.TempDir())

	path, err := s.WriteRows(companySpec, "1970-01-01/00", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"company_id,name,catchPhrase,bs,extraction_ts"}, readLines(t, path))
}

func TestWriteRows_NullCompanyIsEmptyCell(t *testing.T) {
	s := NewCSVSink(t.TempDir())
	spec := pipeline.KindSpec{Kind: domain.KindUser, Fields: domain.UserFields}

	path, err := s.WriteRows(spec, "2009-02-13/23", 1234567890, []domain.Projection{domain.ProcessedUser{
		UserID: 1, Username: "Bret", Phone: "p", Email: "e", Website: "w",
		ExtractionTS: "2009-02-13T23:31:30+00:00",
	}})
	require.NoError(t, err)
	assert.Equal(t, "1,Bret,p,e,w,,2009-02-13T23:31:30+00:00", readLines(t, path)[1])
}

func TestWriteRows_ConcurrentHeaderOnce(t *testing.T) {
	s := NewCSVSink(t.TempDir())

	var wg sync.WaitGroup
	paths := make([]string, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := s.WriteRows(companySpec, "2009-02-13/23", 5, []domain.Projection{company(int64(i), "x")})
			assert.NoError(t, err)
			paths[i] = p
		}(i)
	}
	wg.Wait()

	lines := readLines(t, paths[0])
	assert.Len(t, lines, 21)
	assert.Equal(t, "company_id,name,catchPhrase,bs,extraction_ts", lines[0])
	for _, l := range lines[1:] {
		assert.False(t, strings.HasPrefix(l, "company_id,"))
	}
}

func TestWriteRows_CustomTemplate(t *testing.T) {
	root := t.TempDir()
	s := NewCSVSink(root)
	spec := companySpec
	spec.PathTemplate = "{kind}/{ts}.csv"

	path, err := s.WriteRows(spec, "2009-02-13/23", 9, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "company", "9.csv"), path)
}

func TestWriteRows_CellCountMismatch(t *testing.T) {
	s := NewCSVSink(t.TempDir())
	spec := pipeline.KindSpec{Kind: domain.KindCompany, Fields: []string{"only_one"}}

	_, err := s.WriteRows(spec, "2009-02-13/23", 1, []domain.Projection{company(1, "a")})
	assert.Error(t, err)
}
