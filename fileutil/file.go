// Copyright (c) 2026, the sh authors
// See LICENSE for licensing information

// Package fileutil allows to easily find shell files in a directory
// tree before handing them to the parser.
package fileutil

import (
	"io/fs"
	"regexp"
	"strings"
)

var (
	shebangRe = regexp.MustCompile(`^#!\s?/(usr/)?bin/(env\s+)?(sh|bash|mksh|zsh)(\s|$)`)
	extRe     = regexp.MustCompile(`\.(sh|bash|mksh|zsh)$`)
)

// HasShebang reports whether bs begins with a valid shell shebang.
// It supports variations with /usr and env.
func HasShebang(bs []byte) bool {
	return shebangRe.Match(bs)
}

// ScriptConfidence defines how likely a file is to be a shell script,
// from complete certainty that it is not one to complete certainty that
// it is one.
type ScriptConfidence int

const (
	// ConfNotScript describes files which are definitely not shell
	// scripts, such as files with non-shell extensions.
	ConfNotScript ScriptConfidence = iota

	// ConfIfShebang describes files which might be shell scripts,
	// depending on the shebang line in the file's contents. Since
	// CouldBeScript only works on file names, a follow-up call on the
	// file's contents via HasShebang is needed.
	ConfIfShebang

	// ConfIsScript describes files which are definitely shell scripts,
	// which are non-hidden files with a known shell file extension.
	ConfIsScript
)

// CouldBeScript reports how likely a directory entry is to be a shell
// script. It discards directories, symlinks, hidden files and files
// with non-shell extensions.
func CouldBeScript(entry fs.DirEntry) ScriptConfidence {
	name := entry.Name()
	switch {
	case entry.IsDir(), name[0] == '.':
		return ConfNotScript
	case entry.Type()&fs.ModeSymlink != 0:
		return ConfNotScript
	case extRe.MatchString(name):
		return ConfIsScript
	case strings.IndexByte(name, '.') > 0:
		return ConfNotScript // different extension
	case len(name) < 255: // arbitrary max "command name" length
		return ConfIfShebang
	default:
		return ConfNotScript
	}
}
