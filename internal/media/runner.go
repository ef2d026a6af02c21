package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"syscall"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/sync/errgroup"
)

// stderrTailLimit 限制错误信息里携带的 stderr 尾部大小。
const stderrTailLimit = 8 << 10

// Runner 执行外部程序并收集输出。
// 上下文取消时向整个进程组发 SIGKILL，避免 ffmpeg 留下孤儿子进程。
type Runner struct {
	log *log.Helper
}

// NewRunner 构造 Runner。
func NewRunner(logger log.Logger) *Runner {
	return &Runner{log: log.NewHelper(logger)}
}

// Run 执行程序并返回完整 stdout。非零退出码返回携带 stderr 尾部的错误。
func (r *Runner) Run(ctx context.Context, path string, args []string) ([]byte, error) {
	var stdout bytes.Buffer
	err := r.RunWithStdout(ctx, path, args, func(out io.Reader) error {
		_, copyErr := io.Copy(&stdout, out)
		return copyErr
	})
	if err != nil {
		return nil, err
	}
	return stdout.Bytes(), nil
}

// RunWithStdout 执行程序，把 stdout 交给 handle 流式消费。
// handle 与进程并发运行；进程退出码非零时优先返回退出错误。
func (r *Runner) RunWithStdout(ctx context.Context, path string, args []string, handle func(io.Reader) error) error {
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("open stdout pipe: %w", err)
	}

	r.log.WithContext(ctx).Debugf("exec: %s %v", path, args)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", path, err)
	}

	g := new(errgroup.Group)
	g.Go(func() error {
		err := handle(stdout)
		// handle 提前返回后继续排空 stdout，防止进程因管道阻塞卡死，
		// 也保证 Wait 之前管道已读完。
		_, _ = io.Copy(io.Discard, stdout)
		return err
	})

	hErr := g.Wait()
	waitErr := cmd.Wait()

	if waitErr != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s canceled: %w", path, ctx.Err())
		}
		return fmt.Errorf("%s failed: %w: %s", path, waitErr, tail(stderr.Bytes(), stderrTailLimit))
	}
	if hErr != nil {
		return fmt.Errorf("consume %s output: %w", path, hErr)
	}
	return nil
}

func tail(b []byte, limit int) string {
	if len(b) > limit {
		b = b[len(b)-limit:]
	}
	return string(bytes.TrimSpace(b))
}
