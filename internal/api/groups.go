package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/service"
)

func (s *Server) listGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.svc.Groups.ListGroups(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": orEmpty(groups)})
}

func (s *Server) createGroup(w http.ResponseWriter, r *http.Request) {
	var req service.CreateGroupInput
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.svc.Groups.CreateGroup(r.Context(), userID(r), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	result.Invitations = orEmpty(result.Invitations)
	result.UnknownEmails = orEmpty(result.UnknownEmails)
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) getGroup(w http.ResponseWriter, r *http.Request) {
	group, err := s.svc.Groups.GetGroup(r.Context(), userID(r), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (s *Server) deleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Groups.DeleteGroup(r.Context(), userID(r), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.svc.Groups.ListMembers(r.Context(), userID(r), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": orEmpty(members)})
}

func (s *Server) addMember(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	inv, err := s.svc.Groups.AddMember(r.Context(), userID(r), mux.Vars(r)["id"], req.Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"invitation": inv})
}

func (s *Server) removeMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.svc.Groups.RemoveMember(r.Context(), userID(r), vars["id"], vars["userId"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listGroupExpenses(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["id"]
	expenses, err := s.svc.Splits.ListGroupExpenses(r.Context(), userID(r), groupID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"group_id": groupID, "expenses": orEmpty(expenses)})
}

func (s *Server) createGroupExpense(w http.ResponseWriter, r *http.Request) {
	var req service.GroupExpenseInput
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	expense, err := s.svc.Splits.CreateGroupExpense(r.Context(), userID(r), mux.Vars(r)["id"], req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}

func (s *Server) createItemizedExpense(w http.ResponseWriter, r *http.Request) {
	var req service.ItemizedExpenseInput
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	expense, err := s.svc.Splits.CreateItemizedExpense(r.Context(), userID(r), mux.Vars(r)["id"], req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}

func (s *Server) deleteGroupExpense(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.svc.Splits.DeleteGroupExpense(r.Context(), userID(r), vars["id"], vars["expenseId"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) groupBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := s.svc.Groups.Balances(r.Context(), userID(r), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	balances.Balances = orEmpty(balances.Balances)
	balances.SimplifiedDebts = orEmpty(balances.SimplifiedDebts)
	balances.Settlements = orEmpty(balances.Settlements)
	writeJSON(w, http.StatusOK, balances)
}

func (s *Server) settle(w http.ResponseWriter, r *http.Request) {
	var req service.SettleInput
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	settlement, err := s.svc.Groups.Settle(r.Context(), userID(r), mux.Vars(r)["id"], req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, settlement)
}

func (s *Server) listSettlements(w http.ResponseWriter, r *http.Request) {
	settlements, err := s.svc.Groups.ListSettlements(r.Context(), userID(r), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settlements": orEmpty(settlements)})
}

func (s *Server) deleteSettlement(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.svc.Groups.DeleteSettlement(r.Context(), userID(r), vars["id"], vars["settlementId"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listInvitations(w http.ResponseWriter, r *http.Request) {
	invitations, err := s.svc.Invitations.List(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invitations": orEmpty(invitations)})
}

func (s *Server) respondToInvitation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Accept *bool `json:"accept"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Accept == nil {
		s.writeError(w, r, invalidBody("accept is required"))
		return
	}
	inv, err := s.svc.Invitations.Respond(r.Context(), userID(r), mux.Vars(r)["id"], *req.Accept)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}
