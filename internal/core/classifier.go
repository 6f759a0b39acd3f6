package core

import (
	"path/filepath"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// hintThreshold is the minimum Jaro-Winkler similarity between a file stem
// and a stage keyword for the file to be suggested as the missing stage.
const hintThreshold = 0.8

// Classify assigns the files of dir to stage roles.
//
// A file holds a role when its name contains the role keyword
// (case-sensitive substring). One file may hold several roles. When several
// files match the same role, the last one in listing order wins; Files is
// sorted by the Scanner, so the tie-break is lexicographic and stable.
//
// The returned program is not validated; call Validate.
func Classify(dir Directory) *ShaderProgram {
	p := &ShaderProgram{
		Name: dir.Name,
		Dir:  dir.Path,
		Rel:  dir.Rel,
	}
	for _, file := range dir.Files {
		for _, s := range Stages {
			if strings.Contains(file, s.Keyword()) {
				p.Files[s] = file
				p.Candidates[s] = append(p.Candidates[s], file)
			}
		}
	}
	for _, s := range p.Missing() {
		p.Hints[s] = suggest(s, dir.Files)
	}
	return p
}

// suggest returns the file whose stem is most similar to the stage keyword,
// or "" if none is similar enough. Used for diagnostics only.
func suggest(s Stage, files []string) string {
	metric := metrics.NewJaroWinkler()
	metric.CaseSensitive = false

	best, bestScore := "", hintThreshold
	for _, file := range files {
		stem := strings.TrimSuffix(file, filepath.Ext(file))
		if stem == "" {
			continue
		}
		if score := strutil.Similarity(stem, s.Keyword(), metric); score >= bestScore {
			best, bestScore = file, score
		}
	}
	return best
}
