package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/stayaudit/internal/adapters/search"
	"github.com/zatekoja/stayaudit/internal/application/services"
	"github.com/zatekoja/stayaudit/internal/domain/entities"
	"github.com/zatekoja/stayaudit/internal/infrastructure/embeddings"
	"github.com/zatekoja/stayaudit/internal/knowledge"
	apperrors "github.com/zatekoja/stayaudit/pkg/errors"
)

func offlineEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("INDEX_BACKEND", "memory")
	t.Setenv("INDEX_DIMENSIONS", "256")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("OTEL_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("VAULT_ENABLED", "false")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestReadinessCommand(t *testing.T) {
	out, err := execute(t, "readiness", "--pathology", "apendicite", "--days", "3", "--age", "40")
	require.NoError(t, err)

	var assessment entities.ReadinessAssessment
	require.NoError(t, json.Unmarshal([]byte(out), &assessment))
	assert.Equal(t, 100, assessment.Score)
	assert.Equal(t, entities.ReadinessHigh, assessment.Level)
}

func TestReadinessCommand_RequiresPathology(t *testing.T) {
	_, err := execute(t, "readiness", "--days", "3")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestAnalyzeCommand_Offline(t *testing.T) {
	offlineEnv(t)

	out, err := execute(t, "analyze", "--pathology", "PNEUMONIA", "--days", "8", "--age", "70", "--comorbidity", "DPOC")
	require.NoError(t, err)

	var result struct {
		Recommendation entities.LLMRecommendation   `json:"recomendacao"`
		Assessment     entities.ReadinessAssessment `json:"avaliacao_base"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Recommendation.Priority.Valid())
	assert.InDelta(t, 0.78, result.Recommendation.Confidence, 1e-9)
	assert.Equal(t, 3, result.Recommendation.ContextUsage.DocumentsFound)
	assert.Equal(t, 7, result.Assessment.Compliance.MaxAllowedStay)
}

func TestBatchCommand_CSV(t *testing.T) {
	offlineEnv(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "stays.csv")
	output := filepath.Join(dir, "results.csv")
	dataset := "internacao_id,paciente_nome,patologia,tempo_permanencia,setor,idade,comorbidades\n" +
		"INT-1,Maria,APENDICITE,3,ENFERMARIA,40,[]\n" +
		"INT-2,Joao,SEPSE,20,UTI,82,\"['DPOC', 'HAS', 'DM']\"\n"
	require.NoError(t, os.WriteFile(input, []byte(dataset), 0o600))

	out, err := execute(t, "batch", "--input", input, "--output", output, "--workers", "2")
	require.NoError(t, err)

	var report entities.BatchReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 2, report.Total)
	assert.NotEmpty(t, report.RunID)

	written, err := os.ReadFile(output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(written)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "INT-1,"))
	assert.True(t, strings.HasPrefix(lines[2], "INT-2,"))
}

func TestBatchCommand_SkipsBadRows(t *testing.T) {
	offlineEnv(t)
	input := filepath.Join(t.TempDir(), "stays.csv")
	dataset := "patologia,tempo_permanencia,idade\n" +
		"PNEUMONIA,8,70\n" +
		"SEPSE,12,N/A\n" +
		"APENDICITE,3,40\n"
	require.NoError(t, os.WriteFile(input, []byte(dataset), 0o600))

	out, err := execute(t, "batch", "--input", input)
	require.NoError(t, err)

	var report entities.BatchReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Skipped)
}

func TestBatchCommand_RequiresOneSource(t *testing.T) {
	_, err := execute(t, "batch")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestReviewCommand(t *testing.T) {
	out, err := execute(t, "review", "--priority", "ALTA_PRIORIDADE_BAIXA", "--reason", "Tempo excedido", "--decision", "manter")
	require.NoError(t, err)
	assert.Contains(t, out, "- Prioridade: BAIXA\n")
	assert.Contains(t, out, "- Razões: [Tempo excedido]\n")
	assert.Contains(t, out, "Decisão humana: manter\n")
}

func TestReviewPriority(t *testing.T) {
	assert.Equal(t, entities.PriorityHigh, reviewPriority("alta"))
	assert.Equal(t, entities.PriorityMaintain, reviewPriority("MANTER_INTERNACAO"))
	assert.Equal(t, entities.Priority(""), reviewPriority(" "))
}

func TestParseInterval(t *testing.T) {
	d, err := parseInterval("", 0)
	require.NoError(t, err)
	assert.Zero(t, d)

	d, err = parseInterval("6h", 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 6*time.Hour, d)

	d, err = parseInterval("", 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, d)

	_, err = parseInterval("-1h", 0)
	assert.Error(t, err)
	_, err = parseInterval("soon", 0)
	assert.Error(t, err)
}

func TestReindexCommand_Once(t *testing.T) {
	offlineEnv(t)
	t.Setenv("REINDEX_INTERVAL", "")

	_, err := execute(t, "reindex", "--reset")
	require.NoError(t, err)
}

func TestReindexCommand_NegativeConfiguredInterval(t *testing.T) {
	offlineEnv(t)
	t.Setenv("REINDEX_INTERVAL", "-5m")

	_, err := execute(t, "reindex")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REINDEX_INTERVAL")
}

type downIndex struct{}

func (downIndex) Count(context.Context) (int, error) { return 0, errors.New("connection refused") }
func (downIndex) Add(context.Context, []entities.IndexedDocument) error {
	return errors.New("connection refused")
}
func (downIndex) Query(context.Context, string, int) ([]entities.IndexHit, error) {
	return nil, errors.New("connection refused")
}
func (downIndex) Reset(context.Context) error { return errors.New("connection refused") }

func TestIndexOnce_BackendDown(t *testing.T) {
	retriever := services.NewContextRetriever(downIndex{}, knowledge.NewDefault())

	for _, reset := range []bool{false, true} {
		err := indexOnce(context.Background(), retriever, reset)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeIndexUnavailable), "reset=%v: %v", reset, err)
	}
}

func TestIndexOnce_ReportsTotal(t *testing.T) {
	retriever := services.NewContextRetriever(
		search.NewMemoryIndex(embeddings.NewHashingEmbedder(64)), knowledge.NewDefault())

	require.NoError(t, indexOnce(context.Background(), retriever, false))
	total, err := retriever.DocumentCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, total)
}

func TestEvalCommand(t *testing.T) {
	offlineEnv(t)

	out, err := execute(t, "eval", "--k", "5")
	require.NoError(t, err)

	var summary struct {
		Total   int `json:"total_consultas"`
		K       int `json:"k"`
		Failed  int `json:"consultas_com_erro"`
		Results []struct {
			Retrieved []string `json:"documentos_recuperados"`
		} `json:"resultados"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 10, summary.Total)
	assert.Equal(t, 5, summary.K)
	assert.Zero(t, summary.Failed)
	require.Len(t, summary.Results, 10)
	assert.Len(t, summary.Results[0].Retrieved, 5)
}

func TestEvalCommand_BelowThreshold(t *testing.T) {
	offlineEnv(t)

	_, err := execute(t, "eval", "--min-recall", "1.5")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, exitCode(apperrors.NewValidationError("bad flag")))
	assert.Equal(t, 2, exitCode(fmt.Errorf("wrapped: %w", apperrors.NewNotFoundError("no stay"))))
	assert.Equal(t, 3, exitCode(apperrors.NewConfigurationAbsentError("DB_HOST is empty")))
	assert.Equal(t, 1, exitCode(apperrors.NewIndexUnavailableError("down", errors.New("refused"))))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
}
