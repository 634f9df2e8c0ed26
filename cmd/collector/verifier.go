package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// PromptVerifier 在终端提示输入验证码。多个采集器同时需要验证时逐个提示。
type PromptVerifier struct {
	mu     sync.Mutex
	lines  chan string
	errs   chan error
	out    io.Writer
	start  sync.Once
	reader *bufio.Reader
}

// NewPromptVerifier 从 in 读取验证码，提示写到 out
func NewPromptVerifier(in io.Reader, out io.Writer) *PromptVerifier {
	return &PromptVerifier{
		lines:  make(chan string),
		errs:   make(chan error, 1),
		out:    out,
		reader: bufio.NewReader(in),
	}
}

// readLoop 持续读取输入行。读取阻塞无法被 ctx 打断，所以放在独立协程中。
func (v *PromptVerifier) readLoop() {
	for {
		line, err := v.reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			v.lines <- line
		}
		if err != nil {
			v.errs <- err
			return
		}
	}
}

// VerificationCode 提示并等待一行非空输入
func (v *PromptVerifier) VerificationCode(ctx context.Context, collectorID string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.start.Do(func() { go v.readLoop() })
	fmt.Fprintf(v.out, "Verification code for collector %s: ", collectorID)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line := <-v.lines:
		return line, nil
	case err := <-v.errs:
		// 保留错误，后续调用也立即失败
		v.errs <- err
		if err == io.EOF {
			return "", fmt.Errorf("no verification code: input closed")
		}
		return "", fmt.Errorf("read verification code: %w", err)
	}
}
