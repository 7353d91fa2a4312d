package services

// Client-facing messages of the business errors raised by the services.
const (
	msgUserNotFoundByEmail = "Usuário não encontrado para o email informado!"
	msgInvalidPassword     = "Senha inválida!"
	msgInvalidEmail        = "Informe um email válido."
	msgInvalidPasswordIn   = "Informe uma senha válida."
	msgPasswordTooLong     = "A senha deve ter no máximo 72 bytes."
	msgEmailInUse          = "Já existe um usuário com este email!"
	msgUserNotFoundByID    = "Usuário não encontrado para o Id informado!"

	msgInvalidDescription = "Informe uma Descrição válida."
	msgInvalidMonth       = "Informe um Mês válido."
	msgInvalidYear        = "Informe um Ano válido."
	msgMissingUser        = "Informe um Usuário."
	msgInvalidAmount      = "Informe um Valor válido."
	msgMissingType        = "Informe um tipo de Lançamento."
	msgMissingEntryID     = "Lançamento sem identificador."
	msgEntryNotFound      = "Lançamento não encontrado na base de dados!"
	msgInvalidStatus      = "Status inválido, não foi possível atualizar. Informe um status válido!"
)
