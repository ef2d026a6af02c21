package media

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Progress 是 ffmpeg 报告的一帧进度。
type Progress struct {
	// Elapsed 是已编码的媒体时长（out_time）。
	Elapsed time.Duration
	// End 表示这是最后一次进度（progress=end）。
	End bool
}

// ParseProgress 读取 ffmpeg -progress 的 key=value 流。
// 每遇到一个 progress 行就回调一次；emit 返回错误时停止解析。
func ParseProgress(r io.Reader, emit func(Progress) error) error {
	scanner := bufio.NewScanner(r)
	var elapsed time.Duration

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "out_time":
			if d, err := parseOutTime(value); err == nil {
				elapsed = d
			}
		case "out_time_us":
			if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
				elapsed = time.Duration(us) * time.Microsecond
			}
		case "progress":
			end := value == "end"
			if err := emit(Progress{Elapsed: elapsed, End: end}); err != nil {
				return err
			}
			if end {
				return nil
			}
		}
	}
	return scanner.Err()
}

// parseOutTime 解析 "HH:MM:SS.micros" 形式的时间。
func parseOutTime(value string) (time.Duration, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("malformed out_time %q", value)
	}
	hours, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed out_time %q", value)
	}
	minutes, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed out_time %q", value)
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, fmt.Errorf("malformed out_time %q", value)
	}
	total := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second))
	if total < 0 {
		return 0, fmt.Errorf("negative out_time %q", value)
	}
	return total, nil
}
