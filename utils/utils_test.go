package utils

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"raw", `{"score": 90}`, `{"score": 90}`, true},
		{"code block", "```json\n{\"score\": 90}\n```", `{"score": 90}`, true},
		{"bare code block", "```\n{\"score\": 90}\n```", `{"score": 90}`, true},
		{"surrounding prose", "评分如下：{\"score\": 90} 以上", `{"score": 90}`, true},
		{"trailing braces", `{"score":90,"detail":"x"} 以上是评分 {注}`, `{"score":90,"detail":"x"}`, true},
		{"braces inside strings", `结果：{"detail":"用{}表示","score":80} {备注}`, `{"detail":"用{}表示","score":80}`, true},
		{"note before object", `{注} {"score": 70}`, `{"score": 70}`, true},
		{"unparseable kept greedy", "{\"detail\":\"第一行\n第二行\"}", "{\"detail\":\"第一行\n第二行\"}", true},
		{"no object", "模型开小差了", "模型开小差了", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSONObject(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ExtractJSONObject(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"voice.wav", "voice.wav"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\rec.webm`, "rec.webm"},
		{"a:b?.mp3", "a_b_.mp3"},
		{"", "upload"},
		{"..", "upload"},
	}

	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCreateUniqueFile_Deduplicates(t *testing.T) {
	dir := t.TempDir()

	var names []string
	for i := 0; i < 3; i++ {
		f, err := CreateUniqueFile(dir, "voice.wav")
		if err != nil {
			t.Fatalf("CreateUniqueFile: %v", err)
		}
		names = append(names, filepath.Base(f.Name()))
		f.Close()
	}

	want := []string{"voice.wav", "voice 2.wav", "voice 3.wav"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestCreateUniqueFile_ConcurrentWritersNeverCollide(t *testing.T) {
	dir := t.TempDir()
	const n = 20

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, err := CreateUniqueFile(dir, "same.wav")
			if err != nil {
				t.Errorf("CreateUniqueFile: %v", err)
				return
			}
			defer f.Close()
			mu.Lock()
			seen[f.Name()] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Errorf("expected %d distinct files, got %d", n, len(seen))
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != n {
		t.Errorf("expected %d files on disk, got %d", n, len(entries))
	}
}

func TestDetectMimeType(t *testing.T) {
	if got := DetectMimeType("x.WAV"); got != "audio/wav" {
		t.Errorf("got %q", got)
	}
	if got := DetectMimeType("x.bin"); got != "application/octet-stream" {
		t.Errorf("got %q", got)
	}
}
