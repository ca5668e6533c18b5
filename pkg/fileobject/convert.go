package fileobject

import (
	"mime"
	"path"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonWordRe = regexp.MustCompile(`[^\w\s-]`)

// ConvertFilename 规范化上传文件名。
// normalize 对每个以点分隔的片段做 NFKD 分解、丢弃非 ASCII 字符和标点；
// convert 把空格替换成下划线并转小写。
func ConvertFilename(name string, normalize, convert bool) string {
	if normalize {
		chunks := strings.Split(name, ".")
		for i, chunk := range chunks {
			chunks[i] = asciiFold(chunk)
		}
		name = strings.Join(chunks, ".")
	}
	if convert {
		name = strings.ToLower(strings.ReplaceAll(name, " ", "_"))
	}
	return name
}

func asciiFold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.TrimSpace(nonWordRe.ReplaceAllString(folded, ""))
}

// MimeType 根据扩展名猜测 MIME 类型，未知时为空串
func MimeType(filename string) string {
	return mime.TypeByExtension(strings.ToLower(path.Ext(filename)))
}
