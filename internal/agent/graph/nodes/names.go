package nodes

// Graph node names. They double as callback RunInfo names.
const (
	NodeInputConverter    = "InputConverter"
	NodeEarlyExit         = "EarlyExit"
	NodePending           = "PendingConfirmation"
	NodeIntentClassifier  = "IntentClassifier"
	NodeHumanHandoff      = "HumanHandoff"
	NodeMenu              = "Menu"
	NodeFreight           = "Freight"
	NodeOrderTaking       = "OrderTaking"
	NodeResponseAssembler = "ResponseAssembler"
	NodeResponseChatModel = "ResponseChatModel"
	NodeToolExecutor      = "ToolExecutor"
	NodeFinalizer         = "Finalizer"
)

// Reply texts set by the branches before formulation.
const (
	MsgHandoff       = "Entendi. Um de nossos atendentes irá continuar a conversa com você em instantes."
	MsgMenu          = "Claro! Aqui está o nosso cardápio."
	MsgItemsAdded    = "Anotei: %s. Deseja mais alguma coisa?"
	MsgItemsRemoved  = "Removi: %s. Deseja mais alguma coisa?"
	MsgAddressStored = "Endereço de entrega atualizado. Deseja mais alguma coisa?"
	MsgAskDelivery   = "Ótimo! Você prefere que seja para **entrega** ou para **retirada na loja**?"
	MsgOrderNotRead  = "Desculpe, não consegui entender seu pedido. Pode repetir, por favor?"
	MsgFreightQuote  = "A entrega fica em R$ %.2f (%.1f km, cerca de %.0f minutos)."
	MsgFreightNoCost = "A distância até você é de %.1f km, cerca de %.0f minutos."
	// MsgGeneric is the reply of last resort.
	MsgGeneric = "Desculpe, não consegui processar sua solicitação no momento. Tente novamente."
)
