// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import "strings"

// repairSummaryJSON coaxes a model reply into the {"summary": ...} object the
// summarizer decodes. It strips prose around the object, restores a key's
// missing opening quote and drops trailing commas. Replies with no object are
// returned unchanged.
func repairSummaryJSON(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		// Nothing to repair; let the decoder report it
		return s
	}
	return dropTrailingCommas(quoteBareKeys(s[start : end+1]))
}

// quoteBareKeys restores the opening quote of keys written as `summary":`.
func quoteBareKeys(s string) string {
	in := []rune(s)
	out := make([]rune, 0, len(in)+8)
	inString := false

	for i := 0; i < len(in); i++ {
		ch := in[i]
		out = append(out, ch)

		switch {
		case inString:
			if ch == '\\' && i+1 < len(in) {
				i++
				out = append(out, in[i])
			} else if ch == '"' {
				inString = false
			}
		case ch == '"':
			inString = true
		case ch == '{' || ch == ',':
			j := i + 1
			for j < len(in) && isSpace(in[j]) {
				j++
			}
			k := j
			for k < len(in) && (isLetter(in[k]) || in[k] == '_') {
				k++
			}
			if k > j && k+1 < len(in) && in[k] == '"' && in[k+1] == ':' {
				out = append(out, in[i+1:j]...)
				out = append(out, '"')
				out = append(out, in[j:k+1]...)
				i = k
			}
		}
	}
	return string(out)
}

// dropTrailingCommas removes commas that directly precede a closing brace or
// bracket outside of strings.
func dropTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			b.WriteByte(ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		if ch == '"' {
			inString = true
		}
		if ch == ',' {
			j := i + 1
			for j < len(s) && isSpace(rune(s[j])) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(ch)
	}
	return b.String()
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
