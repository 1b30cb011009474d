package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/nightlif34/Ninja-Otc/internal/config"
	"github.com/nightlif34/Ninja-Otc/internal/model"
	"github.com/nightlif34/Ninja-Otc/internal/repository"
	"github.com/nightlif34/Ninja-Otc/internal/service"
)

// pending input states for the requisites and deal-creation dialogs
const (
	awaitingTonWallet       = "ton_wallet"
	awaitingBankCard        = "bank_card"
	awaitingDealAmount      = "deal_amount"
	awaitingDealDescription = "deal_description"
)

type pendingInput struct {
	awaiting    string
	paymentType model.PaymentType
	amount      string
}

type Bot struct {
	bot    *tele.Bot
	cfg    *config.Config
	users  *service.UserService
	deals  *service.DealService
	admins *service.AdminService

	mu      sync.Mutex
	pending map[int64]*pendingInput
}

func NewBot(
	cfg *config.Config,
	users *service.UserService,
	deals *service.DealService,
	admins *service.AdminService,
) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.Telegram.BotToken,
		Poller: &tele.LongPoller{Timeout: 60 * time.Second},
	}

	bot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:     bot,
		cfg:     cfg,
		users:   users,
		deals:   deals,
		admins:  admins,
		pending: make(map[int64]*pendingInput),
	}

	b.registerHandlers()

	return b, nil
}

func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.handleStart)
	b.bot.Handle("/buy", b.handleBuy)
	b.bot.Handle("/add", b.handleAddAdmin)
	b.bot.Handle("/del", b.handleDelAdmin)
	b.bot.Handle("/set_my_deals", b.handleSetMyDeals)
	b.bot.Handle("/show_deals", b.handleShowDeals)

	b.bot.Handle(tele.OnCallback, b.handleCallback)
	b.bot.Handle(tele.OnText, b.handleText)
}

func (b *Bot) StartPolling(ctx context.Context) {
	go func() {
		<-ctx.Done()
		b.bot.Stop()
	}()
	b.bot.Start()
}

func (b *Bot) GetBotUsername() string {
	return b.bot.Me.Username
}

func (b *Bot) setPending(userID int64, p *pendingInput) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p == nil {
		delete(b.pending, userID)
		return
	}
	b.pending[userID] = p
}

func (b *Bot) getPending(userID int64) *pendingInput {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending[userID]
}

const welcomeText = `👋 Добро пожаловать в Ninja OTC – надёжный P2P-гарант! 💼
Покупайте и продавайте всё, что угодно – безопасно и быстро!
От Telegram-подарков и NFT до токенов и фиата – сделки проходят легко и без риска.

⚙️ Что вас ждёт:
🔹 Удобное управление реквизитами
🔹 Безопасные сделки с гарантией

👇 Выберите нужный раздел ниже`

func (b *Bot) mainMenuKeyboard() *tele.ReplyMarkup {
	keyboard := &tele.ReplyMarkup{}
	keyboard.Inline(
		keyboard.Row(keyboard.Data("💼 Управление реквизитами", "manage_payment")),
		keyboard.Row(keyboard.Data("💸 Создать сделку", "create_deal")),
		keyboard.Row(keyboard.Data("🌐 Изменить язык", "change_language")),
		keyboard.Row(keyboard.Data("🧠 Поддержка", "support")),
	)
	return keyboard
}

func (b *Bot) backKeyboard() *tele.ReplyMarkup {
	keyboard := &tele.ReplyMarkup{}
	keyboard.Inline(
		keyboard.Row(keyboard.Data("⬅️ Вернуться в меню", "main_menu")),
	)
	return keyboard
}

func (b *Bot) handleStart(c tele.Context) error {
	user := c.Sender()
	username := user.Username
	if err := b.users.UpsertUser(context.Background(), user.ID, &username); err != nil {
		log.Printf("failed to upsert user %d: %v", user.ID, err)
	}

	// A /start payload is a deal token from a share link.
	if payload := strings.TrimSpace(c.Message().Payload); payload != "" {
		return b.joinDeal(c, payload)
	}

	return c.Send(welcomeText, b.mainMenuKeyboard())
}

func (b *Bot) joinDeal(c tele.Context, dealID string) error {
	buyer := c.Sender()
	username := buyer.Username

	instructions, err := b.deals.JoinDeal(context.Background(), dealID, buyer.ID, &username)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDealNotFound):
			return c.Send("❌ Сделка не найдена.")
		case errors.Is(err, service.ErrSelfJoin):
			return c.Send("❌ Вы не можете присоединиться к своей собственной сделке.")
		case errors.Is(err, repository.ErrBuyerTaken):
			return c.Send("❌ К этой сделке уже присоединился другой покупатель.")
		default:
			log.Printf("failed to join deal %s: %v", dealID, err)
			return c.Send("❌ Не удалось присоединиться к сделке. Попробуйте позже.")
		}
	}

	text := fmt.Sprintf(`💳 Информация о сделке #%s
👤 Вы покупатель в сделке.
📌 Продавец: %s (ID %d)
• Успешные сделки: %d
• Вы покупаете: %s
🏦 Адрес для оплаты: %s
💰 Сумма к оплате: %s %s
📝 Комментарий к платежу (мемо): <code>%s</code> (можно скопировать)

⚠️ Пожалуйста, убедитесь в правильности данных перед оплатой.
Комментарий (мемо) обязателен!`,
		instructions.DealID,
		instructions.SellerMention,
		instructions.SellerID,
		instructions.SellerDealCount,
		instructions.Description,
		instructions.Address,
		instructions.Amount,
		instructions.PaymentType,
		instructions.Memo,
	)

	keyboard := &tele.ReplyMarkup{}
	keyboard.Inline(
		keyboard.Row(keyboard.Data("✅ Подтвердить оплату", "confirm_payment", instructions.DealID)),
	)

	return c.Send(text, keyboard, tele.ModeHTML)
}

func (b *Bot) handleCallback(c tele.Context) error {
	defer c.Respond()

	data := strings.TrimPrefix(c.Callback().Data, "\f")
	action, payload := data, ""
	if i := strings.Index(data, "|"); i >= 0 {
		action, payload = data[:i], data[i+1:]
	}

	switch action {
	case "main_menu":
		b.setPending(c.Sender().ID, nil)
		return c.Edit(welcomeText, b.mainMenuKeyboard())
	case "manage_payment":
		return b.showPaymentManagement(c)
	case "create_deal":
		return b.showDealCreation(c)
	case "change_language":
		return c.Edit("🌐 Изменение языка\n\nВ настоящее время доступен только русский язык.", b.backKeyboard())
	case "support":
		return c.Edit("🧠 Поддержка\n\nНапишите нам: "+b.cfg.Telegram.SupportLink, b.backKeyboard())
	case "add_ton_wallet":
		b.setPending(c.Sender().ID, &pendingInput{awaiting: awaitingTonWallet})
		return c.Edit("Пожалуйста, введите ваш TON-кошелёк:", b.backKeyboard())
	case "add_bank_card":
		b.setPending(c.Sender().ID, &pendingInput{awaiting: awaitingBankCard})
		return c.Edit("Пожалуйста, введите вашу банковскую карту:", b.backKeyboard())
	case "deal_type":
		return b.handleDealTypeSelection(c, payload)
	case "confirm_payment":
		// Manual path: payment is confirmed by an admin via /buy.
		return c.Respond(&tele.CallbackResponse{Text: "⚠️ Оплата не найдена", ShowAlert: true})
	case "confirm_receipt":
		return b.handleReceiptConfirmation(c, payload)
	default:
		log.Printf("unknown callback data: %q", data)
	}
	return nil
}

func (b *Bot) showPaymentManagement(c tele.Context) error {
	user, err := b.users.GetUser(context.Background(), c.Sender().ID)

	tonWallet := "не указан"
	bankCard := "не указана"
	if err == nil {
		if user.TonWallet != nil && *user.TonWallet != "" {
			tonWallet = *user.TonWallet
		}
		if user.BankCard != nil && *user.BankCard != "" {
			bankCard = *user.BankCard
		}
	}

	text := fmt.Sprintf("💼 Управление реквизитами\n\nTON-кошелёк: %s\nБанковская карта: %s", tonWallet, bankCard)

	keyboard := &tele.ReplyMarkup{}
	keyboard.Inline(
		keyboard.Row(keyboard.Data("Добавить/изменить TON-кошелёк", "add_ton_wallet")),
		keyboard.Row(keyboard.Data("Добавить/изменить карту", "add_bank_card")),
		keyboard.Row(keyboard.Data("⬅️ Вернуться в меню", "main_menu")),
	)

	return c.Edit(text, keyboard)
}

func (b *Bot) showDealCreation(c tele.Context) error {
	keyboard := &tele.ReplyMarkup{}
	keyboard.Inline(
		keyboard.Row(keyboard.Data("На TON-кошелёк", "deal_type", "ton")),
		keyboard.Row(keyboard.Data("На карту", "deal_type", "card")),
		keyboard.Row(keyboard.Data("На Stars", "deal_type", "stars")),
		keyboard.Row(keyboard.Data("⬅️ Вернуться в меню", "main_menu")),
	)

	return c.Edit("💸 Создание сделки\n\nВыберите тип сделки:", keyboard)
}

func (b *Bot) handleDealTypeSelection(c tele.Context, dealType string) error {
	var paymentType model.PaymentType
	switch dealType {
	case "ton":
		paymentType = model.PaymentTypeTON
	case "card":
		paymentType = model.PaymentTypeRUB
	case "stars":
		paymentType = model.PaymentTypeStars
	default:
		paymentType = model.PaymentTypeUnknown
	}

	b.setPending(c.Sender().ID, &pendingInput{awaiting: awaitingDealAmount, paymentType: paymentType})
	return c.Edit("Пожалуйста, введите сумму:", b.backKeyboard())
}

func (b *Bot) handleText(c tele.Context) error {
	userID := c.Sender().ID
	text := strings.TrimSpace(c.Text())

	pending := b.getPending(userID)
	if pending == nil {
		return nil
	}

	switch pending.awaiting {
	case awaitingTonWallet:
		b.setPending(userID, nil)
		if err := b.users.SetPaymentDestination(context.Background(), userID, model.PaymentKindTon, text); err != nil {
			log.Printf("failed to save ton wallet for %d: %v", userID, err)
			return c.Send("❌ Не удалось сохранить реквизиты. Попробуйте позже.", b.backKeyboard())
		}
		return c.Send("✅ TON-кошелёк успешно сохранён!", b.backKeyboard())

	case awaitingBankCard:
		b.setPending(userID, nil)
		if err := b.users.SetPaymentDestination(context.Background(), userID, model.PaymentKindCard, text); err != nil {
			log.Printf("failed to save bank card for %d: %v", userID, err)
			return c.Send("❌ Не удалось сохранить реквизиты. Попробуйте позже.", b.backKeyboard())
		}
		return c.Send("✅ Банковская карта успешно сохранена!", b.backKeyboard())

	case awaitingDealAmount:
		pending.amount = text
		pending.awaiting = awaitingDealDescription
		b.setPending(userID, pending)
		return c.Send("Пожалуйста, введите описание товара/подарка:", b.backKeyboard())

	case awaitingDealDescription:
		b.setPending(userID, nil)
		return b.createDeal(c, pending.paymentType, pending.amount, text)
	}

	return nil
}

func (b *Bot) createDeal(c tele.Context, paymentType model.PaymentType, amount, description string) error {
	if amount == "" || description == "" {
		return c.Send("❌ Ошибка создания сделки. Попробуйте снова.", b.backKeyboard())
	}

	deal, err := b.deals.CreateDeal(context.Background(), c.Sender().ID, amount, description, paymentType)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingPaymentDestination):
			return c.Send("❌ Сначала добавьте реквизиты для оплаты в разделе 'Управление реквизитами'.", b.backKeyboard())
		case errors.Is(err, service.ErrDealCreation):
			return c.Send("❌ Ошибка создания сделки. Попробуйте снова позже.", b.backKeyboard())
		default:
			log.Printf("failed to create deal for %d: %v", c.Sender().ID, err)
			return c.Send("❌ Ошибка создания сделки. Попробуйте снова позже.", b.backKeyboard())
		}
	}

	text := fmt.Sprintf(`✅ Сделка создана!

ID сделки: #%s
Тип: %s
Сумма: %s
Описание: %s

Ссылка для покупателя:
%s`,
		deal.ID, deal.PaymentType, deal.Amount, deal.Description,
		deal.JoinLink(b.cfg.Telegram.BotUsername))

	return c.Send(text, b.backKeyboard())
}

func (b *Bot) handleReceiptConfirmation(c tele.Context, dealID string) error {
	deal, err := b.deals.ConfirmReceipt(context.Background(), c.Sender().ID, dealID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDealNotFound):
			return c.Respond(&tele.CallbackResponse{Text: "❌ Сделка не найдена"})
		case errors.Is(err, service.ErrNotTheBuyer):
			return c.Respond(&tele.CallbackResponse{Text: "❌ Только покупатель может подтвердить получение", ShowAlert: true})
		case errors.Is(err, service.ErrPaymentNotConfirmed):
			return c.Respond(&tele.CallbackResponse{Text: "❌ Оплата ещё не подтверждена", ShowAlert: true})
		default:
			log.Printf("failed to confirm receipt for deal %s: %v", dealID, err)
			return c.Respond(&tele.CallbackResponse{Text: "❌ Ошибка, попробуйте позже"})
		}
	}

	return c.Edit(fmt.Sprintf("✅ Вы подтвердили получение товара. Сделка #%s завершена.", deal.ID))
}

func (b *Bot) handleBuy(c tele.Context) error {
	args := c.Args()
	if len(args) < 1 {
		return c.Send("❌ Использование: /buy <deal_id>")
	}

	dealID := args[0]
	_, err := b.deals.ConfirmPayment(context.Background(), c.Sender().ID, dealID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotPermitted):
			return c.Send("❌ У вас нет прав для выполнения этой команды.")
		case errors.Is(err, repository.ErrDealNotFound):
			return c.Send(fmt.Sprintf("❌ Сделка #%s не найдена.", dealID))
		case errors.Is(err, service.ErrDealCompleted):
			return c.Send(fmt.Sprintf("❌ Сделка #%s уже завершена.", dealID))
		default:
			log.Printf("failed to confirm payment for deal %s: %v", dealID, err)
			return c.Send("❌ Ошибка, попробуйте позже.")
		}
	}

	return c.Send(fmt.Sprintf("✅ Оплата по сделке #%s подтверждена.", dealID))
}

func (b *Bot) handleAddAdmin(c tele.Context) error {
	targetID, err := parseAdminCommandArgs(c.Args())
	if err != nil {
		return c.Send("❌ Использование: /add admin <user_id>")
	}

	if err := b.admins.GrantAdmin(context.Background(), c.Sender().ID, targetID); err != nil {
		switch {
		case errors.Is(err, service.ErrNotPermitted):
			return c.Send("❌ Только владельцы могут добавлять администраторов.")
		case errors.Is(err, service.ErrTargetIsOwner):
			return c.Send("❌ Нельзя изменить статус владельца.")
		case errors.Is(err, repository.ErrAlreadyAdmin):
			return c.Send(fmt.Sprintf("❌ Пользователь %d уже является администратором.", targetID))
		default:
			log.Printf("failed to grant admin to %d: %v", targetID, err)
			return c.Send("❌ Ошибка, попробуйте позже.")
		}
	}

	return c.Send(fmt.Sprintf("✅ Пользователь %d добавлен в администраторы.", targetID))
}

func (b *Bot) handleDelAdmin(c tele.Context) error {
	targetID, err := parseAdminCommandArgs(c.Args())
	if err != nil {
		return c.Send("❌ Использование: /del admin <user_id>")
	}

	removed, err := b.admins.RevokeAdmin(context.Background(), c.Sender().ID, targetID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotPermitted):
			return c.Send("❌ Только владельцы могут удалять администраторов.")
		case errors.Is(err, service.ErrTargetIsOwner):
			return c.Send("❌ Нельзя удалить владельца.")
		default:
			log.Printf("failed to revoke admin from %d: %v", targetID, err)
			return c.Send("❌ Ошибка, попробуйте позже.")
		}
	}
	if !removed {
		return c.Send(fmt.Sprintf("❌ Пользователь %d не является администратором.", targetID))
	}

	return c.Send(fmt.Sprintf("✅ Пользователь %d удалён из администраторов.", targetID))
}

func parseAdminCommandArgs(args []string) (int64, error) {
	if len(args) < 2 || args[0] != "admin" {
		return 0, fmt.Errorf("bad arguments")
	}
	return strconv.ParseInt(args[1], 10, 64)
}

func (b *Bot) handleSetMyDeals(c tele.Context) error {
	args := c.Args()
	if len(args) < 1 {
		return c.Send("❌ Использование: /set_my_deals <число>")
	}

	count, err := strconv.Atoi(args[0])
	if err != nil {
		return c.Send("❌ Неверное число.")
	}

	sender := c.Sender()
	username := sender.Username
	if err := b.users.UpsertUser(context.Background(), sender.ID, &username); err != nil {
		log.Printf("failed to upsert user %d: %v", sender.ID, err)
	}

	if err := b.admins.SetReputation(context.Background(), sender.ID, sender.ID, count); err != nil {
		switch {
		case errors.Is(err, service.ErrNotPermitted):
			return c.Send("❌ Только владельцы могут устанавливать количество сделок.")
		case errors.Is(err, service.ErrNegativeCount):
			return c.Send("❌ Число должно быть положительным.")
		default:
			log.Printf("failed to set reputation for %d: %v", sender.ID, err)
			return c.Send("❌ Ошибка при обновлении данных.")
		}
	}

	return c.Send(fmt.Sprintf("✅ Количество успешных сделок установлено: %d", count))
}

const showDealsLimit = 20

func (b *Bot) handleShowDeals(c tele.Context) error {
	deals, err := b.admins.ListDeals(context.Background(), c.Sender().ID)
	if err != nil {
		if errors.Is(err, service.ErrNotPermitted) {
			return c.Send("❌ Только владельцы могут просматривать все сделки.")
		}
		log.Printf("failed to list deals: %v", err)
		return c.Send("❌ Ошибка, попробуйте позже.")
	}

	if len(deals) == 0 {
		return c.Send("📋 Сделок пока нет.")
	}

	statusNames := map[model.DealStatus]string{
		model.DealStatusPending:          "ожидание",
		model.DealStatusPaymentConfirmed: "оплата подтверждена",
		model.DealStatusCompleted:        "завершено",
	}

	var sb strings.Builder
	sb.WriteString("📋 Все сделки:\n\n")

	shown := deals
	if len(shown) > showDealsLimit {
		shown = shown[:showDealsLimit]
	}

	for _, deal := range shown {
		sb.WriteString(fmt.Sprintf("Сделка #%s\n", deal.ID))
		sb.WriteString(fmt.Sprintf("Продавец: %s\n", b.mention(deal.SellerID)))
		if deal.BuyerID != nil {
			sb.WriteString(fmt.Sprintf("Покупатель: %s\n", b.mention(*deal.BuyerID)))
		} else {
			sb.WriteString("Покупатель: не присоединился\n")
		}
		status := statusNames[deal.Status]
		if status == "" {
			status = string(deal.Status)
		}
		sb.WriteString(fmt.Sprintf("Сумма: %s %s\nСтатус: %s\n\n", deal.Amount, deal.PaymentType, status))
	}

	if len(deals) > showDealsLimit {
		sb.WriteString(fmt.Sprintf("... и ещё %d сделок", len(deals)-showDealsLimit))
	}

	return c.Send(sb.String())
}

func (b *Bot) mention(userID int64) string {
	user, err := b.users.GetUser(context.Background(), userID)
	if err != nil {
		return fmt.Sprintf("ID %d", userID)
	}
	return user.Mention()
}

// --- service.Notifier ---

func (b *Bot) SendBuyerJoined(sellerID int64, dealID, buyerMention string, buyerDeals int) error {
	text := fmt.Sprintf(`Пользователь %s присоединился к сделке #%s
- Успешные сделки: %d
⚠️ Проверьте, что это тот же пользователь, с которым вы вели диалог ранее! Не переводите подарок до получения подтверждения оплаты в этом чате!`,
		buyerMention, dealID, buyerDeals)

	_, err := b.bot.Send(&tele.User{ID: sellerID}, text)
	return err
}

func (b *Bot) SendPaymentConfirmed(sellerID int64, dealID string) error {
	text := fmt.Sprintf("✅ Оплата по сделке #%s подтверждена. Можете отправить товар покупателю.", dealID)
	_, err := b.bot.Send(&tele.User{ID: sellerID}, text)
	return err
}

func (b *Bot) SendAwaitReceipt(buyerID int64, dealID string) error {
	keyboard := &tele.ReplyMarkup{}
	keyboard.Inline(
		keyboard.Row(keyboard.Data("✅ Подтвердить получение", "confirm_receipt", dealID)),
	)

	text := fmt.Sprintf("✅ Оплата подтверждена! Ожидайте получения товара по сделке #%s.", dealID)
	_, err := b.bot.Send(&tele.User{ID: buyerID}, text, keyboard)
	return err
}

func (b *Bot) SendDealCompleted(sellerID int64, dealID string) error {
	text := fmt.Sprintf("✅ Покупатель подтвердил получение товара. Сделка #%s успешно завершена.", dealID)
	_, err := b.bot.Send(&tele.User{ID: sellerID}, text)
	return err
}

var _ service.Notifier = (*Bot)(nil)
