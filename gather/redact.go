package gather

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// shellExts are the file extensions whose context lines are redacted.
var shellExts = map[string]bool{".sh": true, ".bash": true, ".zsh": true}

// publicVars are environment variables left readable in redacted lines.
var publicVars = map[string]bool{
	"HOME": true, "USER": true, "PWD": true, "OLDPWD": true,
	"SHELL": true, "PATH": true, "LANG": true, "TERM": true,
	"EDITOR": true, "PAGER": true, "HOSTNAME": true, "TMPDIR": true,
	"XDG_CONFIG_HOME": true, "XDG_DATA_HOME": true, "IFS": true,
}

// shellParams are special and positional parameters.
var shellParams = map[string]bool{
	"?": true, "!": true, "#": true, "@": true, "*": true,
	"-": true, "$": true, "_": true,
	"0": true, "1": true, "2": true, "3": true, "4": true,
	"5": true, "6": true, "7": true, "8": true, "9": true,
}

// IsShell reports whether path names a shell script.
func IsShell(path string) bool {
	return shellExts[strings.ToLower(filepath.Ext(path))]
}

// RedactText redacts every line of a shell script fragment.
func RedactText(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = RedactLine(l)
	}
	return strings.Join(lines, "\n")
}

// RedactLine hides variable references and assignment values in one line of
// shell source, keeping its indentation. Lines that do not parse on their
// own, such as "if" headers, fall back to pattern matching.
func RedactLine(line string) string {
	if !strings.ContainsAny(line, "$=") {
		return line
	}
	body := strings.TrimLeft(line, " \t")
	indent := line[:len(line)-len(body)]

	parser := syntax.NewParser(syntax.Variant(syntax.LangBash), syntax.KeepComments(true))
	file, err := parser.Parse(strings.NewReader(body), "")
	if err != nil {
		return indent + patternRedact(body)
	}

	syntax.Walk(file, func(node syntax.Node) bool {
		switch n := node.(type) {
		case *syntax.ParamExp:
			if n.Param != nil && !publicVars[n.Param.Value] && !shellParams[n.Param.Value] {
				n.Param.Value = "REDACTED"
			}
		case *syntax.Assign:
			if n.Name != nil && !publicVars[n.Name.Value] && n.Value != nil {
				n.Value.Parts = []syntax.WordPart{&syntax.Lit{Value: "***"}}
			}
		}
		return true
	})

	var buf bytes.Buffer
	if err := syntax.NewPrinter(syntax.Indent(0)).Print(&buf, file); err != nil {
		return indent + patternRedact(body)
	}
	return indent + strings.TrimRight(buf.String(), "\n")
}

var (
	reBracedParam = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
	reParam       = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	reAssignment  = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)=(\S+)`)
)

func patternRedact(s string) string {
	s = reBracedParam.ReplaceAllStringFunc(s, func(m string) string {
		if name := reBracedParam.FindStringSubmatch(m)[1]; publicVars[name] {
			return m
		}
		return "${REDACTED}"
	})
	s = reParam.ReplaceAllStringFunc(s, func(m string) string {
		name := reParam.FindStringSubmatch(m)[1]
		if name == "REDACTED" || publicVars[name] {
			return m
		}
		return "$REDACTED"
	})
	return reAssignment.ReplaceAllStringFunc(s, func(m string) string {
		name := reAssignment.FindStringSubmatch(m)[1]
		if publicVars[name] {
			return m
		}
		return name + "=***"
	})
}
