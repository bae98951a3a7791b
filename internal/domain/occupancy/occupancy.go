// Пакет occupancy — вычисление статуса дома по журналу аллотментов.
//
// Статус определяется последней (по порядку вставки) записью аллотмента:
//   - записей нет — vacant
//   - последняя запись active — occupied
//   - иначе — vacant
//
// Для домов с ручным статусом (status_manual) вычисленное значение
// не применяется.
package occupancy

import "github.com/fazalktk93/accommodation-sub000/internal/domain/model"

// Derive вычисляет статус дома по последнему аллотменту.
// latest == nil означает, что аллотментов у дома нет.
func Derive(latest *model.Allotment) string {
	if latest == nil {
		return model.HouseVacant
	}
	if latest.IsActive() {
		return model.HouseOccupied
	}
	return model.HouseVacant
}

// Apply применяет вычисленный статус к дому.
// Возвращает true, если статус дома изменился.
// Ручной статус не перезаписывается.
func Apply(h *model.House, derived string) bool {
	if h.StatusManual || h.Status == derived {
		return false
	}
	h.Status = derived
	return true
}

// Latest выбирает запись с наибольшим ID (последнюю по порядку вставки).
func Latest(allotments []*model.Allotment) *model.Allotment {
	var latest *model.Allotment
	for _, a := range allotments {
		if latest == nil || a.ID > latest.ID {
			latest = a
		}
	}
	return latest
}
