package editor

import "errors"

// ErrLayerNotEditable возвращается при попытке правки слоя, запрещённой
// текущей политикой (clone-слой либо неактивный слой). Правка
// отклоняется до любой мутации, документ остаётся нетронутым.
var ErrLayerNotEditable = errors.New("слой недоступен для редактирования")

// ErrUnknownTool возвращается при обращении к незарегистрированному
// инструменту.
var ErrUnknownTool = errors.New("неизвестный инструмент")
