// Пакет queue — приоритет и порядок листа ожидания.
//
// Приоритет назначается один раз при одобрении заявки:
//
//	priority = rank * Bucket + offset
//
// где rank — ранг разряда (BPS), offset — порядковый номер одобрения
// внутри ранга (первый одобренный получает наименьшее смещение).
// Меньший приоритет — раньше в очереди.
package queue

import (
	"errors"
	"sort"

	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
)

// Bucket — ёмкость одного ранга.
const Bucket = 10000

// ErrBucketFull — в ранге исчерпаны смещения.
var ErrBucketFull = errors.New("исчерпана ёмкость очереди для ранга")

// ErrInvalidRank — ранг вне допустимого диапазона.
var ErrInvalidRank = errors.New("недопустимый ранг разряда")

// NextPriority вычисляет приоритет новой позиции ранга.
// count — число позиций с тем же рангом в листе ожидания,
// maxPriority — наибольший приоритет среди них (nil, если позиций нет).
// Если после удаления позиций смещение count уже занято, используется
// следующее за максимальным, так что порядок одобрения сохраняется.
func NextPriority(rank, count int, maxPriority *int) (int, error) {
	if rank < 0 {
		return 0, ErrInvalidRank
	}
	offset := count
	if maxPriority != nil {
		if used := *maxPriority - rank*Bucket; used >= offset {
			offset = used + 1
		}
	}
	if offset >= Bucket {
		return 0, ErrBucketFull
	}
	return rank*Bucket + offset, nil
}

// Less задаёт порядок очереди: приоритет по возрастанию,
// баллы по убыванию, ID по возрастанию.
func Less(a, b *model.WaitingEntry) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	if a.PriorityPoints != b.PriorityPoints {
		return a.PriorityPoints > b.PriorityPoints
	}
	return a.ID < b.ID
}

// Sort упорядочивает позиции в порядке очереди.
func Sort(entries []*model.WaitingEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return Less(entries[i], entries[j])
	})
}
