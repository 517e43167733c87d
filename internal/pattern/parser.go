package pattern

import (
	"bufio"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Assignment is one well-formed pattern line.
type Assignment struct {
	Frame   uint8
	Channel uint8
	Color   Color
}

// ParseLine parses a single "F<frame> L<channel> <r> <g> <b>" line.
// Blank lines and comments come back as *ParseError with CodeEmpty / CodeComment
// so callers can tell them apart from malformed input.
func ParseLine(line string) (Assignment, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Assignment{}, &ParseError{Code: CodeEmpty, Text: line}
	}
	if strings.HasPrefix(trimmed, "#") {
		return Assignment{}, &ParseError{Code: CodeComment, Text: line}
	}

	fields := strings.Fields(trimmed)

	frame, err := parseMarked(fields[0], 'F')
	if err != nil {
		code := CodeBadFrame
		if !strings.HasPrefix(fields[0], "F") {
			code = CodeMissingFrame
		}
		return Assignment{}, &ParseError{Code: code, Text: line, Cause: err}
	}

	if len(fields) < 2 {
		return Assignment{}, &ParseError{Code: CodeMissingChannel, Text: line}
	}
	channel, err := parseMarked(fields[1], 'L')
	if err != nil {
		code := CodeBadChannel
		if !strings.HasPrefix(fields[1], "L") {
			code = CodeMissingChannel
		}
		return Assignment{}, &ParseError{Code: code, Text: line, Cause: err}
	}

	components := make([]uint8, 0, 3)
	for _, field := range fields[2:] {
		v, convErr := strconv.ParseUint(field, 10, 8)
		if convErr != nil {
			return Assignment{}, &ParseError{Code: CodeBadColor, Text: line, Cause: convErr}
		}
		components = append(components, uint8(v))
	}
	if len(components) < 3 {
		return Assignment{}, &ParseError{Code: CodeMissingColor, Text: line}
	}

	return Assignment{
		Frame:   frame,
		Channel: channel,
		Color:   RGB(components[0], components[1], components[2]),
	}, nil
}

func parseMarked(field string, marker byte) (uint8, error) {
	if len(field) == 0 || field[0] != marker {
		return 0, strconv.ErrSyntax
	}
	v, err := strconv.ParseUint(field[1:], 10, 8)
	if err != nil {
		return 0, err
	}
	return uint8(v), nil
}

// Parser turns pattern text into a dense Pattern over Range.
type Parser struct {
	Range  ChannelRange
	Logger *slog.Logger
}

// Parse never fails: malformed lines are logged, returned as rejects and skipped.
// Later lines for the same (frame, channel) overwrite earlier ones.
func (p Parser) Parse(source string) (Pattern, []*ParseError) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	frames := make(map[uint8]Frame)
	var rejects []*ParseError

	scanner := bufio.NewScanner(strings.NewReader(source))
	scanner.Buffer(make([]byte, 0, 4096), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		a, err := ParseLine(line)
		if err != nil {
			perr, _ := err.(*ParseError)
			perr.Line = lineNo
			switch perr.Code {
			case CodeEmpty:
				continue
			case CodeComment:
				logger.Debug("Skipping comment", "line", lineNo)
				continue
			}
			logger.Warn("Discarding malformed pattern line", "line", lineNo, "code", perr.Code, "text", line)
			rejects = append(rejects, perr)
			continue
		}

		frame, ok := frames[a.Frame]
		if !ok {
			frame = make(Frame)
			frames[a.Frame] = frame
		}
		frame[a.Channel] = a.Color
	}

	return New(frames).Normalize(p.Range), rejects
}

// Decode validates that data is UTF-8 text and parses it.
func (p Parser) Decode(data []byte) (Pattern, []*ParseError, error) {
	if !utf8.Valid(data) {
		return Pattern{}, nil, newError(ErrCodeInvalidUTF8, "pattern source is not valid utf-8", nil)
	}
	pat, rejects := p.Parse(string(data))
	return pat, rejects, nil
}
