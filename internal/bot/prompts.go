package bot

import (
	"fmt"
	"strings"

	"github.com/zapagenda/zapagenda/internal/schedule"
	"github.com/zapagenda/zapagenda/internal/store"
)

const (
	welcomePrompt = "Olá! Bem-vindo(a) ao nosso sistema de agendamento. Para começar, qual o seu nome?"

	menuOptions = "1️⃣ Ver Serviços\n2️⃣ Agendar um Serviço"

	timeoutMessage = "Sua sessão expirou por inatividade. Voltamos ao menu principal.\n\n" + menuOptions

	invalidOptionMessage = "Opção inválida. Por favor, escolha uma das opções abaixo:\n" + menuOptions

	serviceIndexPrompt = "Por favor, digite um *número válido* da lista de serviços."

	addressPrompt = "Qual o endereço de atendimento?"

	complaintPrompt = "Descreva, por favor, o problema apresentado pelo aparelho."

	equipmentPrompt = "Qual a capacidade do aparelho em BTUs? (ex: 12000)"

	brandPrompt = "Qual a marca do aparelho?"

	datePrompt = "Por favor, digite a data que você deseja (ex: 31/12/2025)."

	invalidDateMessage = "Data inválida ou no passado, ou sem horários livres. Por favor, digite uma data futura no formato DD/MM/YYYY."

	slotIndexPrompt = "Por favor, digite um *número de horário válido* da lista."

	commitFailureMessage = "Desculpe, não foi possível concluir o agendamento agora. Tente novamente em instantes."

	lostStateMessage = "Desculpe, não entendi. Vamos voltar ao menu principal."

	adminUsageHint = "Uso: concluir <número do agendamento>"
)

func greetingMenu(name string) string {
	return fmt.Sprintf("Olá, %s!\nComo posso te ajudar hoje?\n\n%s", name, menuOptions)
}

func backToMenu(name string) string {
	return fmt.Sprintf("Ok, %s. Voltamos ao menu principal.\n\n%s", name, menuOptions)
}

func serviceList(services []store.Service) string {
	if len(services) == 0 {
		return "Nenhum serviço disponível no momento."
	}
	var b strings.Builder
	b.WriteString("Estes são os nossos serviços:\n")
	for i, svc := range services {
		fmt.Fprintf(&b, "\n%d - *%s*", i+1, svc.Name)
	}
	return b.String()
}

func serviceChosen(name string) string {
	return fmt.Sprintf("Ótima escolha! Vamos agendar o serviço: *%s*.\n\n%s", name, addressPrompt)
}

func slotList(dateStr string, slots []schedule.Slot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Estes são os horários disponíveis para %s:\n", dateStr)
	for _, s := range slots {
		fmt.Fprintf(&b, "\n%d - %s", s.Index, s.Label)
	}
	b.WriteString("\n\nDigite o *número* do horário que você prefere.")
	return b.String()
}

func bookingConfirmed(serviceName, dateStr, timeStr string) string {
	return fmt.Sprintf(
		"✅ Agendamento Confirmado!\n\nServiço: *%s*\nData: *%s*\nHorário: *%s*\n\nObrigado! Para um novo serviço, basta enviar uma mensagem.",
		serviceName, dateStr, timeStr,
	)
}

func adminCompleted(id int64) string {
	return fmt.Sprintf("✅ Agendamento %d concluído.", id)
}

func adminNotFound(id int64) string {
	return fmt.Sprintf("Agendamento %d não encontrado.", id)
}
