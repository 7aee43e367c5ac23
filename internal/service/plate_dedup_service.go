package service

import (
	"log"
	"strings"
	"sync"
	"time"
)

const (
	dedupWindow  = 10 * time.Second
	detectionTTL = 30 * time.Second
)

type plateDetection struct {
	plate      string
	detectedAt time.Time
}

// PlateDedupService lọc các lần nhận dạng biển số trùng lặp từ camera.
// Camera bắn nhiều frame cho cùng một xe, chỉ lần đầu được xử lý; các lần
// sau trong cửa sổ 10 giây bị chặn, kể cả khi OCR lệch một ký tự.
type PlateDedupService struct {
	mu         sync.Mutex
	detections map[string][]plateDetection // theo camera ID
	window     time.Duration
	ttl        time.Duration
}

func NewPlateDedupService() *PlateDedupService {
	return &PlateDedupService{
		detections: make(map[string][]plateDetection),
		window:     dedupWindow,
		ttl:        detectionTTL,
	}
}

// NormalizePlate bỏ khoảng trắng, viết hoa và gộp nhiều dấu gạch về một:
// "51F - 12 345" -> "51F-12345".
func NormalizePlate(raw string) string {
	s := strings.ToUpper(strings.ReplaceAll(raw, " ", ""))
	parts := strings.Split(s, "-")
	if len(parts) <= 1 {
		return s
	}
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	if len(nonEmpty) == 0 {
		return ""
	}
	return nonEmpty[0] + "-" + strings.Join(nonEmpty[1:], "")
}

// ShouldProcess trả về true nếu biển số này chưa thấy gần đây trên camera này.
// Khi trả về true, lần nhận dạng được ghi lại để chặn các frame tiếp theo.
func (s *PlateDedupService) ShouldProcess(cameraID string, plate string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	recent := s.detections[cameraID][:0]
	for _, d := range s.detections[cameraID] {
		if now.Sub(d.detectedAt) <= s.ttl {
			recent = append(recent, d)
		}
	}
	s.detections[cameraID] = recent

	for _, d := range recent {
		if now.Sub(d.detectedAt) <= s.window && isSimilarPlate(plate, d.plate) {
			return false
		}
	}
	s.detections[cameraID] = append(recent, plateDetection{plate: plate, detectedAt: now})
	return true
}

// Cleanup loại các lần nhận dạng quá hạn, trả về số bản ghi đã xóa.
func (s *PlateDedupService) Cleanup(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for cameraID, detections := range s.detections {
		kept := detections[:0]
		for _, d := range detections {
			if now.Sub(d.detectedAt) <= s.ttl {
				kept = append(kept, d)
			} else {
				removed++
			}
		}
		if len(kept) == 0 {
			delete(s.detections, cameraID)
		} else {
			s.detections[cameraID] = kept
		}
	}
	if removed > 0 {
		log.Printf("PlateDedup: đã dọn %d bản ghi nhận dạng quá hạn", removed)
	}
	return removed
}

// isSimilarPlate coi hai biển số là một khi trùng khớp, khác đúng một ký tự
// cùng độ dài, hoặc lệch nhau một ký tự chèn/xóa (lỗi OCR thường gặp).
func isSimilarPlate(a, b string) bool {
	if a == b {
		return true
	}
	la, lb := len(a), len(b)
	switch {
	case la == lb:
		diff := 0
		for i := 0; i < la; i++ {
			if a[i] != b[i] {
				diff++
				if diff > 1 {
					return false
				}
			}
		}
		return diff == 1
	case la-lb == 1:
		return isOneInsertion(b, a)
	case lb-la == 1:
		return isOneInsertion(a, b)
	default:
		return false
	}
}

// isOneInsertion kiểm tra long có thể tạo từ short bằng cách chèn đúng một ký tự.
func isOneInsertion(short, long string) bool {
	i, j := 0, 0
	skipped := false
	for i < len(short) && j < len(long) {
		if short[i] == long[j] {
			i++
			j++
			continue
		}
		if skipped {
			return false
		}
		skipped = true
		j++
	}
	return true
}
