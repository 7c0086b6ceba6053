package lsp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

const RPC_VERSION = "2.0"

var (
	ErrMissingSeparator = errors.New("did not find header separator")
	ErrMissingLength    = errors.New("missing Content-Length header")
)

var separator = []byte{'\r', '\n', '\r', '\n'}

type Request struct {
	RPC    string `json:"jsonrpc"`
	ID     int    `json:"id"`
	Method string `json:"method"`
}

type Response struct {
	RPC string `json:"jsonrpc"`
	ID  *int   `json:"id"`
}

type Notification struct {
	RPC    string `json:"jsonrpc"`
	Method string `json:"method"`
}

// EncodeMessage frames msg as a JSON-RPC message with a Content-Length
// header.
func EncodeMessage(msg any) string {
	content, err := json.Marshal(msg)
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(content), content)
}

type baseMessage struct {
	Method string `json:"method"`
}

// DecodeMessage splits a framed message into its method and JSON content.
// Responses to server requests decode with an empty method.
func DecodeMessage(msg []byte) (string, []byte, error) {
	header, content, found := bytes.Cut(msg, separator)
	if !found {
		return "", nil, ErrMissingSeparator
	}

	contentLength, err := parseContentLength(header)
	if err != nil {
		return "", nil, err
	}
	if contentLength > len(content) {
		return "", nil, fmt.Errorf("content shorter than Content-Length %d", contentLength)
	}
	content = content[:contentLength]

	var base baseMessage
	if err := json.Unmarshal(content, &base); err != nil {
		return "", nil, fmt.Errorf("decode message: %w", err)
	}

	return base.Method, content, nil
}

// Split is a bufio.SplitFunc yielding one framed message per token.
func Split(data []byte, _ bool) (advance int, token []byte, err error) {
	header, content, found := bytes.Cut(data, separator)
	if !found {
		return 0, nil, nil
	}

	contentLength, err := parseContentLength(header)
	if err != nil {
		return 0, nil, err
	}
	if len(content) < contentLength {
		return 0, nil, nil
	}

	totalLength := len(header) + len(separator) + contentLength
	return totalLength, data[:totalLength], nil
}

func parseContentLength(header []byte) (int, error) {
	for line := range bytes.SplitSeq(header, []byte("\r\n")) {
		name, value, ok := bytes.Cut(line, []byte(":"))
		if !ok || !bytes.EqualFold(bytes.TrimSpace(name), []byte("Content-Length")) {
			continue
		}
		length, err := strconv.Atoi(string(bytes.TrimSpace(value)))
		if err != nil {
			return 0, fmt.Errorf("invalid Content-Length: %w", err)
		}
		return length, nil
	}
	return 0, ErrMissingLength
}
