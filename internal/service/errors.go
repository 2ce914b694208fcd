package service

import (
	"errors"
	"fmt"
)

// ErrorKind классифицирует ошибки storefront-а
// HTTP слой отображает kind в статус ответа, не разбирая текст ошибки
type ErrorKind int

const (
	// KindGeneric неклассифицированная ошибка (500)
	KindGeneric ErrorKind = iota
	// KindValidation некорректный ввод: пустая корзина, неподдерживаемая валюта, кривой email (400)
	KindValidation
	// KindNotFound неизвестный товар, заказ, платёж или кошелёк (404)
	KindNotFound
	// KindGateway ошибка внешнего коллаборатора: хранилище, платёжный справочник (502)
	KindGateway
)

// Error ошибка с классификацией
// Каждая операция возвращает ошибку вместо паники; orchestrator пробрасывает
// первую классифицированную ошибку наверх без изменения (retry политики нет),
// неклассифицированные оборачивает через OrFallback
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

// Error возвращает сообщение ошибки
func (e *Error) Error() string {
	if e.cause != nil && e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	if e.cause != nil {
		return e.cause.Error()
	}
	return e.Message
}

// Unwrap возвращает причину ошибки (для errors.Is/As)
func (e *Error) Unwrap() error {
	return e.cause
}

// NewValidationError создаёт ошибку валидации
func NewValidationError(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError создаёт ошибку "не найдено"
func NewNotFoundError(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// NewGatewayError оборачивает ошибку внешнего коллаборатора
func NewGatewayError(cause error, message string) error {
	return &Error{Kind: KindGateway, Message: message, cause: cause}
}

// OrFallback пробрасывает классифицированную ошибку без изменений;
// неклассифицированную оборачивает в generic с fallback сообщением,
// чтобы до покупателя не дошёл голый текст внутренней ошибки
func OrFallback(err error, fallback string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindGeneric, Message: fallback, cause: err}
}

// KindOf возвращает классификацию ошибки
// Ошибки без классификации считаются generic
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindGeneric
}

// ErrEmptyCart возвращается при попытке оформить заказ с пустой корзиной
var ErrEmptyCart = &Error{Kind: KindValidation, Message: "cart is empty"}
