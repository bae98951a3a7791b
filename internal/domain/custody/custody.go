// Пакет custody — конечный автомат хранения бумажного дела дома.
//
// Два состояния на дом:
//   - closed — дело на месте (нет открытой выдачи)
//   - open — дело выдано (issue без соответствующего receive)
//
// Переходы: closed --issue--> open, open --receive--> closed.
// Состояние не хранится в автомате: оно выводится из журнала движений,
// автомат только проверяет допустимость перехода.
package custody

import (
	"fmt"

	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
)

// State — состояние дела.
type State string

const (
	// StateClosed — дело на месте.
	StateClosed State = "closed"
	// StateOpen — дело выдано.
	StateOpen State = "open"
)

// Коды ошибок перехода.
const (
	CodeAlreadyIssued = "FILE_ALREADY_ISSUED"
	CodeNotIssued     = "FILE_NOT_ISSUED"
	CodeUnknownEvent  = "UNKNOWN_MOVEMENT"
)

// transitions — матрица допустимых переходов: состояние → движение → новое состояние.
var transitions = map[State]map[string]State{
	StateClosed: {model.MovementIssue: StateOpen},
	StateOpen:   {model.MovementReceive: StateClosed},
}

// TransitionError — ошибка недопустимого перехода.
type TransitionError struct {
	Code    string
	Message string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// StateOf возвращает состояние по наличию открытой выдачи.
func StateOf(hasOpen bool) State {
	if hasOpen {
		return StateOpen
	}
	return StateClosed
}

// Next проверяет переход и возвращает новое состояние.
func Next(current State, movement string) (State, error) {
	if movement != model.MovementIssue && movement != model.MovementReceive {
		return current, &TransitionError{
			Code:    CodeUnknownEvent,
			Message: fmt.Sprintf("неизвестный вид движения %q", movement),
		}
	}

	next, ok := transitions[current][movement]
	if ok {
		return next, nil
	}

	if movement == model.MovementIssue {
		return current, &TransitionError{
			Code:    CodeAlreadyIssued,
			Message: "дело уже выдано и не возвращено",
		}
	}
	return current, &TransitionError{
		Code:    CodeNotIssued,
		Message: "дело не выдано, принимать нечего",
	}
}
