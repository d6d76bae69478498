package router

// Replies holds every canned text the attendant can send. MenuTemplate
// takes the correspondent's first name.
type Replies struct {
	MenuTemplate string
	FallbackName string

	About []string
	Quote []string
	Team  []string

	DeliveryTime string
	ServiceArea  string
	Payment      string

	Maintenance string
}

func DefaultReplies() Replies {
	return Replies{
		MenuTemplate: "Olá, %s! 👋\nSou o assistente virtual da BOREAL.\nComo posso ajudá-lo hoje? Digite o número:\n\n1 - Quem somos\n2 - Orçamento\n3 - Falar com a equipe",
		FallbackName: "cliente",
		About: []string{
			"A BOREAL nasceu da união entre design, precisão e propósito.\n\nSomos especializados em móveis planejados de alto padrão, com foco em criar ambientes funcionais, elegantes e personalizados.\n\nBOREAL: Design que respeita sua história. Montagem que valoriza seu espaço.\n\nConfira: https://bwmbizqx.manus.space/",
			"Digite 2 para iniciar seu orçamento.",
		},
		Quote: []string{
			"Preencha o formulário para obter seu orçamento:",
			"https://docs.google.com/forms/d/e/1FAIpQLSc0vd1eigdgQYfgWTc8Lx1E592vFRDLje5h-RXQ9TzWZYKbNA/viewform",
		},
		Team: []string{
			"Ainda com dúvidas? Fale com nossa equipe:",
			"https://wa.link/srhfro",
		},
		DeliveryTime: "Prazo: até 5 dias úteis após envio das informações.",
		ServiceArea:  "Sim! Atendemos outras cidades. Consulte custos de deslocamento.",
		Payment:      "Aceitamos cartões, transferências e boletos.",
		Maintenance:  "🚧 Assistente em manutenção. Responderemos em breve.",
	}
}

// FollowUpText is the one-time delayed message the scheduler delivers.
const FollowUpText = "Olá! Como foi sua experiência com a BOREAL? Sua opinião é muito importante."
