package knowledge

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestOpen_EmbeddedCorpus(t *testing.T) {
	base, err := Open("")
	require.NoError(t, err)
	assert.Greater(t, base.Len(), 10)
	assert.Equal(t, EmbeddedSource, base.Source())
	for _, e := range base.Entries() {
		assert.NotEmpty(t, e.Upper)
		assert.NotEmpty(t, e.Lower)
	}
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "kb.json", `[
		{"upper": " 白日依山尽 ", "lower": "黄河入海流"},
		{"upper": "", "lower": "dropped"},
		{"upper": "欲穷千里目", "lower": "更上一层楼"}
	]`)

	entries, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Upper: "白日依山尽", Lower: "黄河入海流"},
		{Upper: "欲穷千里目", Lower: "更上一层楼"},
	}, entries)
}

func TestLoad_JSONIgnoresExtraFields(t *testing.T) {
	path := writeFile(t, "kb.json", `[
		{"upper": "春眠不觉晓", "lower": "处处闻啼鸟", "author": "孟浩然", "dynasty": "唐"}
	]`)

	entries, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Upper: "春眠不觉晓", Lower: "处处闻啼鸟"}}, entries)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "kb.yaml", "- upper: 明月松间照\n  lower: 清泉石上流\n- upper: 大漠孤烟直\n  lower: 长河落日圆\n")

	entries, err := Load(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "大漠孤烟直", entries[1].Upper)
}

func TestLoad_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.sqlite")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE couplets (upper TEXT NOT NULL, lower TEXT NOT NULL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO couplets (upper, lower) VALUES (?, ?), (?, ?)`,
		"烟锁池塘柳", "炮镇海城楼", "宝剑锋从磨砺出", "梅花香自苦寒来")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	base, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 2, base.Len())
	assert.Equal(t, "烟锁池塘柳", base.Entries()[0].Upper)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(writeFile(t, "kb.csv", "a,b"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Load(writeFile(t, "kb.json", `[]`))
	assert.ErrorIs(t, err, ErrEmptyKnowledgeBase)

	_, err = Load(writeFile(t, "kb.json", `{not json`))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.sqlite"))
	assert.Error(t, err)
}
