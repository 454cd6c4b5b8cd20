/*
Package msig implements sequenced multi owner accounts, where a group of
owners jointly authorizes transactions.

An account keeps a registry of owners together with an approval threshold.
Any owner can propose a transaction, owners vote to approve or reject, and a
transaction becomes executable once enough of the currently registered
owners approved it. Execution is strictly ordered. Only the transaction
right after the last resolved one can be executed, and a failed execution
resolves its transaction as well, so one broken payload never wedges the
queue.

Privileged account state (the owner registry, the threshold, the metadata)
can only be changed by the account itself. The Engine mints an Authority
capability when a transaction is validated for execution. The execution
harness passes that capability back into the privileged setters, which is
the only way to reach them.

An Initializer can be instrumented to define accounts in the genesis file
and load them on startup.
*/
package msig
