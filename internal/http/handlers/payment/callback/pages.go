package callback

import "net/http"

// SuccessPage — простая страница, на которую редиректится пользователь
// после подтверждённого платежа.
func SuccessPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("<html><body><h1>Оплата прошла успешно</h1><p>Подписка активирована, можно закрыть страницу.</p></body></html>"))
}

// FailurePage — страница при отклонённом или неподтверждённом платеже.
func FailurePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("<html><body><h1>Оплата не подтверждена</h1><p>Платёж не прошёл. Попробуйте ещё раз или обратитесь в поддержку.</p></body></html>"))
}
