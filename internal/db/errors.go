package db

import "errors"

// ErrCodeGenerationExhausted возвращается, когда за отведённое число попыток
// не удалось сгенерировать уникальный код тикета. Это внутренняя ошибка
// инварианта: при нормальной нагрузке коллизии крайне редки.
var ErrCodeGenerationExhausted = errors.New("исчерпаны попытки генерации уникального кода тикета")
